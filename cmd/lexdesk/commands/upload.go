package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>...",
	Short: "Upload PDF documents",
	Long: `Upload PDF documents. The backend extracts their text in the
background; run "lexdesk docs" to see when they are ready.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var rmCmd = &cobra.Command{
	Use:   "rm <document-id>...",
	Short: "Delete documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	return authHint(
		uploadFiles(ctx, a.client, a.tokenSource(ctx), os.Stdout, args),
	)
}

// uploadFiles uploads each path in turn, stopping at the first failure.
func uploadFiles(ctx context.Context, c *lexapi.Client,
	ts oauth2.TokenSource, w io.Writer, paths []string) error {

	for _, path := range paths {
		res, err := uploadFile(ctx, c, ts, path)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Uploaded %s as #%d (%s)\n", res.Title,
			res.DocumentID, res.Status)
	}

	return nil
}

func uploadFile(ctx context.Context, c *lexapi.Client,
	ts oauth2.TokenSource, path string) (*lexapi.UploadResult, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return c.UploadDocument(ctx, ts, filepath.Base(path), f)
}

func runRm(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseDocumentID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	ctx := context.Background()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	return authHint(
		deleteDocuments(ctx, a.client, a.tokenSource(ctx), os.Stdout, ids),
	)
}

// deleteDocuments deletes each document in turn, stopping at the first
// failure.
func deleteDocuments(ctx context.Context, c *lexapi.Client,
	ts oauth2.TokenSource, w io.Writer, ids []int64) error {

	for _, id := range ids {
		if err := c.DeleteDocument(ctx, ts, id); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted #%d\n", id)
	}

	return nil
}
