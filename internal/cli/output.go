// Package cli provides output formatting and an HTTP client for the kotae CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteChat writes a chat answer. Text output ends with the session id so the next
// turn can continue the conversation with --session.
func WriteChat(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%s\n", resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "\n--- Sources ---")
		for i, src := range resp.Sources {
			fmt.Fprintf(w, "[%d] %s\n", i+1, TruncateWords(src, 30))
		}
	}
	fmt.Fprintf(w, "\nsession: %s\n", resp.SessionID)
	return nil
}

// WriteBookings writes a booking listing.
func WriteBookings(w io.Writer, list *models.BookingList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "%d booking(s)\n", list.Total)
	for _, b := range list.Bookings {
		fmt.Fprintf(w, "#%-5d %s %s  %s <%s>\n", b.ID, b.Date, b.Time, b.Name, b.Email)
	}
	return nil
}

// WriteIngest writes the result of a document ingestion.
func WriteIngest(w io.Writer, resp *models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%s\n", resp.Message)
	fmt.Fprintf(w, "document_id: %s\n", resp.ItemID)
	fmt.Fprintf(w, "chunks:      %d\n", resp.Chunks)
	return nil
}

// WriteStatus writes the server status report.
func WriteStatus(w io.Writer, status *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "documents:          %d   # count of ingested documents\n", status.Documents)
	fmt.Fprintf(w, "chunks:             %d   # count of text chunks\n", status.Chunks)
	fmt.Fprintf(w, "bookings:           %d\n", status.Bookings)
	fmt.Fprintf(w, "vectors:            %d   # points in the vector collection\n", status.Vectors)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + local vector index\n", *status.DiskUsageBytes)
	}
	for _, d := range status.WatchDirs {
		fmt.Fprintf(w, "watch_directory:    %s\n", d)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "vector_backend:     %s\n", c.VectorBackend)
		fmt.Fprintf(w, "collection:         %s\n", c.Collection)
		fmt.Fprintf(w, "embedding:          %s (%d dims)\n", c.EmbeddingProvider, c.EmbeddingDimensions)
		if c.LLMModel != "" {
			fmt.Fprintf(w, "llm_model:          %s\n", c.LLMModel)
		}
		fmt.Fprintf(w, "chunking:           %s, %d chars\n", c.ChunkStrategy, c.ChunkSize)
		fmt.Fprintf(w, "top_k:              %d\n", c.TopK)
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		if c.VectorIndexPath != "" {
			fmt.Fprintf(w, "vector_index_path:  %s\n", c.VectorIndexPath)
		}
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
