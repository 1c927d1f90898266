package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/spf13/cobra"
)

var (
	docsPage  int
	docsLimit int
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List your uploaded documents",
	RunE:  runDocs,
}

func init() {
	docsCmd.Flags().IntVarP(&docsPage, "page", "p", 1,
		"Page number")
	docsCmd.Flags().IntVarP(&docsLimit, "limit", "n",
		lexapi.DefaultPageSize, "Documents per page")
	docsCmd.Flags().StringVar(&outputFormat, "format", "text",
		"Output format: text, json")
}

func runDocs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.client.ListDocuments(
		ctx, a.tokenSource(ctx), docsPage, docsLimit,
	)
	if err != nil {
		return authHint(err)
	}

	switch outputFormat {
	case "json":
		return outputJSON(docs)

	case "text", "":
		if len(docs) == 0 {
			fmt.Println("No documents.")
			return nil
		}

		for _, d := range docs {
			fmt.Print(formatDocument(d))
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q", outputFormat)
	}
}

// formatDocument formats a document listing entry.
func formatDocument(d lexapi.DocumentInfo) string {
	var sb strings.Builder

	marker := " "
	if d.HasStoredSummary() {
		marker = "✓"
	}

	sb.WriteString(fmt.Sprintf("%s #%d: %s\n", marker, d.ID, d.Title))
	sb.WriteString(fmt.Sprintf("    %s | %s", d.Type,
		formatSize(d.FileSize)))
	if at, err := d.UploadedAt(); err == nil {
		sb.WriteString(" | " + at.Local().Format(time.DateTime))
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatSize renders a byte count.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
