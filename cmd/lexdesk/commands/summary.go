package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"golang.org/x/sync/errgroup"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <document-id>...",
	Short: "Generate document summaries",
	Long: `Generate the summary of each document. Documents are summarized
concurrently, bounded by summary.max_concurrent. Interrupting the command
cancels the requests still in flight.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&outputFormat, "format", "text",
		"Output format: text, json, html")
}

// summaryOutput is the result of one document.
type summaryOutput struct {
	DocumentID int64  `json:"document_id"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

func runSummary(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "text", "json", "html", "":
	default:
		return fmt.Errorf("unknown format %q", outputFormat)
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseDocumentID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := a.newService(nil)
	defer svc.Close()

	results := summarizeAll(ctx, svc, ids, a.cfg.Summary.MaxConcurrent)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := writeSummaries(results); err != nil {
		return err
	}

	if n := countFailed(results); n > 0 {
		return fmt.Errorf("%d of %d summaries failed", n, len(results))
	}

	return nil
}

// summarizeAll generates the summary of every id, at most limit at a time.
// Results follow the order of ids, repeats included.
func summarizeAll(ctx context.Context, svc *summary.Service, ids []int64,
	limit int) []summaryOutput {

	results := make([]summaryOutput, len(ids))

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, id := range ids {
		g.Go(func() error {
			results[i] = summarizeOne(ctx, svc, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// summarizeOne generates the summary of one document. When the request is
// deduplicated against one already in flight, the outcome of that request is
// awaited and reported instead.
func summarizeOne(ctx context.Context, svc *summary.Service,
	id int64) summaryOutput {

	out := summaryOutput{DocumentID: id}

	text := svc.GenerateSummary(ctx, summary.Document{ID: id})
	if text.IsSome() {
		out.Summary = text.UnwrapOr("")
		return out
	}

	rec := svc.WaitSummary(ctx, id).UnwrapOr(summary.Record{DocID: id})
	switch {
	case rec.HasContent():
		out.Summary = rec.ContentText()
	case rec.HasError():
		out.Error = rec.ErrorText()
	default:
		out.Error = "summary request cancelled"
	}

	return out
}

func countFailed(results []summaryOutput) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}

	return n
}

// writeSummaries prints the results in the selected output format.
func writeSummaries(results []summaryOutput) error {
	switch outputFormat {
	case "json":
		return outputJSON(results)

	case "html":
		var md strings.Builder
		for _, r := range results {
			md.WriteString(fmt.Sprintf("## Document %d\n\n",
				r.DocumentID))
			if r.Error != "" {
				md.WriteString("*" + r.Error + "*\n\n")
				continue
			}
			md.WriteString(r.Summary + "\n\n")
		}

		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(md.String()), &buf); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		_, err := os.Stdout.Write(buf.Bytes())
		return err

	default:
		for i, r := range results {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("Document #%d\n", r.DocumentID)
			fmt.Println(strings.Repeat("=", 60))
			if r.Error != "" {
				fmt.Printf("Error: %s\n", r.Error)
				continue
			}
			fmt.Println(r.Summary)
		}
		return nil
	}
}
