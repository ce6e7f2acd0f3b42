// Package cli provides the HTTP client and output writers used by the scrible command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/storage"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const rule = "---------------------------------------------------------"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes a ranked search response.
func WriteSearchResults(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d result(s) for %q\n", resp.Total, resp.Query)
	if resp.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", resp.Suggestion)
	}
	fmt.Fprintln(w)
	for i, r := range resp.Results {
		writeResult(w, i+1, r)
	}
	return nil
}

func writeResult(w io.Writer, rank int, r *models.RankedResult) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%d. %s [%s] %d%% match\n", rank, r.SourceName, r.SourceType, percent(r.Relevance))
	fmt.Fprintf(w, "Source: %s\n", r.SourceID)
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Excerpt, 200))
}

func percent(relevance float64) int {
	return int(relevance*100 + 0.5)
}

// WriteChatResponse writes an assistant answer followed by its citations.
func WriteChatResponse(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Answer)
	if resp.Suggestion != "" {
		fmt.Fprintf(w, "\nDid you mean: %s\n", resp.Suggestion)
	}
	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, c := range resp.Citations {
			fmt.Fprintf(w, "  [%d] %s (%s, %d%% match)\n", i+1, c.SourceName, c.SourceType, percent(c.Relevance))
		}
	}
	if !resp.Generated {
		fmt.Fprintln(w, "\n(answer assembled from source excerpts)")
	}
	return nil
}

// Notebook is one entry of the notebook listing.
type Notebook struct {
	models.Notebook
	models.Readiness
}

// WriteNotebooks writes a notebook listing.
func WriteNotebooks(w io.Writer, nbs []*Notebook, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"notebooks": nbs})
	}
	if len(nbs) == 0 {
		fmt.Fprintln(w, "No notebooks.")
		return nil
	}
	for _, nb := range nbs {
		fmt.Fprintf(w, "%s  %-30s %d/%d sources ready\n", nb.ID, nb.Name, nb.Ready, nb.Total)
	}
	return nil
}

// WriteSource writes a source and its processing status.
func WriteSource(w io.Writer, src *models.Source, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, src)
	}
	fmt.Fprintf(w, "Source %s (%s) %q\n", src.ID, src.Kind, src.Name)
	fmt.Fprintf(w, "Status: %s %d%% %s\n", src.Status.Stage, src.Status.Progress, src.Status.Message)
	if src.Status.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", src.Status.ErrorMessage)
	}
	return nil
}

// Status is the GET /api/v1/status response.
type Status struct {
	Store          storage.Stats          `json:"store"`
	Config         map[string]interface{} `json:"config,omitempty"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
}

// WriteStatus writes server counts and configuration.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "notebooks:          %d\n", st.Store.Notebooks)
	fmt.Fprintf(w, "sources:            %d   # %d ready\n", st.Store.Sources, st.Store.ReadySources)
	fmt.Fprintf(w, "chat_messages:      %d\n", st.Store.ChatMessages)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + vector index on disk\n", *st.DiskUsageBytes)
	}
	if len(st.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		keys := make([]string, 0, len(st.Config))
		for k := range st.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%-20s%v\n", k+":", st.Config[k])
		}
	}
	return nil
}
