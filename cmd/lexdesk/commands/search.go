package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search documents and earlier answers",
	Long: `Search document titles and the questions and answers recorded for your
documents. A numeric query also matches the document with that id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&outputFormat, "format", "text",
		"Output format: text, json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := checkListFormat(outputFormat); err != nil {
		return err
	}

	ctx := context.Background()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	err = search(ctx, a.client, a.tokenSource(ctx), os.Stdout, query,
		outputFormat)

	return authHint(err)
}

// search runs the query and writes the matches to w.
func search(ctx context.Context, c *lexapi.Client, ts oauth2.TokenSource,
	w io.Writer, query, format string) error {

	res, err := c.Search(ctx, ts, query)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(w, res)
	}

	_, err = io.WriteString(w, formatSearchResults(res))
	return err
}

// formatSearchResults renders matches grouped by kind.
func formatSearchResults(res *lexapi.SearchResults) string {
	if res.Empty() {
		return "No matches.\n"
	}

	var sb strings.Builder

	if len(res.Documents) > 0 {
		sb.WriteString("Documents\n")
		for _, d := range res.Documents {
			sb.WriteString(fmt.Sprintf("  #%d: %s\n", d.ID, d.Title))
		}
	}

	if len(res.Answers) > 0 {
		if len(res.Documents) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Answers\n")
		for _, qa := range res.Answers {
			sb.WriteString(fmt.Sprintf("  #%d Q: %s\n", qa.DocumentID,
				qa.Question))
			sb.WriteString(fmt.Sprintf("      A: %s\n", qa.Answer))
		}
	}

	return sb.String()
}
