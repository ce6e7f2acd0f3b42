package models

import "time"

// Notebook is a user-owned collection of sources plus derived summary state.
// Sources is filled on read in insertion order; it is not persisted with the notebook row.
type Notebook struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	OverallSummary string     `json:"overall_summary,omitempty"`
	KeyInsights    []string   `json:"key_insights,omitempty"`
	SummarizedAt   *time.Time `json:"summarized_at,omitempty"`
	Sources        []*Source  `json:"sources,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Clone returns a copy of nb without its Sources.
func (nb *Notebook) Clone() *Notebook {
	if nb == nil {
		return nil
	}
	c := *nb
	c.Sources = nil
	if nb.KeyInsights != nil {
		c.KeyInsights = append([]string(nil), nb.KeyInsights...)
	}
	if nb.SummarizedAt != nil {
		at := *nb.SummarizedAt
		c.SummarizedAt = &at
	}
	return &c
}

// NotebookInput is the input for creating or updating a notebook.
type NotebookInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Readiness is the derived count of ready and total sources in a notebook.
type Readiness struct {
	Ready int `json:"ready_sources"`
	Total int `json:"total_sources"`
}

// NotebookSummary is the outcome of a notebook-level summarization.
type NotebookSummary struct {
	OverallSummary string   `json:"overall_summary"`
	KeyInsights    []string `json:"key_insights"`
	ReadySources   int      `json:"ready_sources"`
	Generated      bool     `json:"generated"`
}
