package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var askHistory bool

var askCmd = &cobra.Command{
	Use:   "ask <document-id> [question...]",
	Short: "Ask a question about a document",
	Long: `Ask a question about a document. Answers are drawn from the document's
summary, so the document must have one (see "lexdesk summary").

With --history, list the questions already asked about the document instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askHistory, "history", false,
		"List the questions already asked")
	askCmd.Flags().StringVar(&outputFormat, "format", "text",
		"Output format: text, json")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := checkListFormat(outputFormat); err != nil {
		return err
	}

	docID, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(args[1:], " "))
	if !askHistory && question == "" {
		return errors.New("a question is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ts := a.tokenSource(ctx)
	if askHistory {
		err = showHistory(ctx, a.client, ts, os.Stdout, docID,
			outputFormat)
	} else {
		err = askQuestion(ctx, a.client, ts, os.Stdout, docID,
			question, outputFormat)
	}

	return authHint(err)
}

// askQuestion asks the backend and writes the answer to w.
func askQuestion(ctx context.Context, c *lexapi.Client,
	ts oauth2.TokenSource, w io.Writer, docID int64, question,
	format string) error {

	ans, err := c.AskQuestion(ctx, ts, docID, question)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(w, ans)
	}

	_, err = fmt.Fprintf(w, "%s\n\n(confidence %.0f%%)\n", ans.Text,
		ans.Score*100)
	return err
}

// showHistory writes the questions asked about a document to w.
func showHistory(ctx context.Context, c *lexapi.Client,
	ts oauth2.TokenSource, w io.Writer, docID int64, format string) error {

	qs, err := c.PreviousQuestions(ctx, ts, docID)
	if err != nil {
		return err
	}

	if format == "json" {
		if qs == nil {
			qs = []lexapi.QuestionAnswer{}
		}
		return writeJSON(w, qs)
	}

	if len(qs) == 0 {
		_, err := fmt.Fprintf(w, "No questions asked about #%d yet.\n",
			docID)
		return err
	}

	for i, q := range qs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, formatQuestion(q))
	}

	return nil
}

// formatQuestion renders one question and its answer.
func formatQuestion(q lexapi.QuestionAnswer) string {
	var sb strings.Builder

	sb.WriteString("Q: " + q.Question + "\n")
	sb.WriteString("A: " + q.Answer + "\n")
	if at, err := q.AskedAt(); err == nil && !at.IsZero() {
		sb.WriteString("   asked " + at.Local().Format(time.DateTime) +
			"\n")
	}

	return sb.String()
}

// checkListFormat accepts the output formats of the listing commands.
func checkListFormat(format string) error {
	switch format {
	case "text", "json", "":
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
