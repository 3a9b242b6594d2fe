// Package cli provides output formatting and a server client for the ragqa CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/ragqa/internal/models"
	"github.com/hyperjump/ragqa/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, question string, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "Q: %s\n\n", question)
	if resp.Error != "" && !resp.Success {
		fmt.Fprintf(w, "Error: %s\n", resp.Error)
	}
	fmt.Fprintf(w, "%s\n", resp.Answer)
	return nil
}

// WriteIngestResults writes the outcome of ingesting one or more documents.
func WriteIngestResults(w io.Writer, results []*models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []*models.IngestResponse{}
		}
		return writeJSON(w, results)
	}
	indexed := 0
	for _, r := range results {
		title := ""
		if r.Document != nil {
			title = r.Document.Title
		}
		fmt.Fprintf(w, "%-10s %-40s %3d chunk(s)", r.Stage, utils.Truncate(title, 40), r.Chunks)
		if r.Stage == "indexed" {
			indexed++
		} else if r.Message != "" {
			fmt.Fprintf(w, "  %s", r.Message)
		}
		fmt.Fprintln(w)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "           warning: %s\n", issue)
		}
	}
	fmt.Fprintf(w, "\n%d of %d document(s) indexed\n", indexed, len(results))
	return nil
}

// WriteStatus writes service status to w in the given format.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "documents:          %d   # document records\n", status.Documents)
	fmt.Fprintf(w, "chat_entries:       %d   # answered questions\n", status.ChatEntries)
	fmt.Fprintf(w, "chunks:             %d   # text chunks in the retrieval index\n", status.Chunks)
	fmt.Fprintf(w, "vectors:            %d   # vectors in the retrieval index\n", status.Vectors)
	fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + uploaded files on disk\n", status.DiskUsageBytes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "index_type:         %s\n", status.IndexType)
	if status.Dimensions > 0 {
		fmt.Fprintf(w, "dimensions:         %d\n", status.Dimensions)
	}
	fmt.Fprintf(w, "top_k:              %d\n", status.TopK)
	fmt.Fprintf(w, "embedding_ready:    %t\n", status.EmbeddingReady)
	return nil
}

// WriteHistory writes recent chat entries, newest first.
func WriteHistory(w io.Writer, history *models.History, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, history)
	}
	if len(history.Entries) == 0 {
		fmt.Fprintln(w, "No questions asked yet.")
		return nil
	}
	for _, e := range history.Entries {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%s] Q: %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Question)
		fmt.Fprintf(w, "A: %s\n", utils.Truncate(e.Answer, 300))
	}
	fmt.Fprintf(w, "\nShowing %d of %d\n", len(history.Entries), history.Total)
	return nil
}
