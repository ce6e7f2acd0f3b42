// Package models defines the notebook, source, and query data structures shared
// across the ingestion pipeline, the relevance engine, and the HTTP API.
package models

import (
	"strings"
	"time"
)

// SourceKind is the type of content a source was ingested from.
type SourceKind string

const (
	KindPDF     SourceKind = "pdf"
	KindURL     SourceKind = "url"
	KindYouTube SourceKind = "youtube"
	KindDOCX    SourceKind = "docx"
	KindTXT     SourceKind = "txt"
)

// ParseSourceKind returns the kind named by s (case-insensitive).
func ParseSourceKind(s string) (SourceKind, bool) {
	switch k := SourceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPDF, KindURL, KindYouTube, KindDOCX, KindTXT:
		return k, true
	}
	return "", false
}

// Stage is a step of the ingestion state machine.
type Stage string

const (
	StageUploading   Stage = "uploading"
	StageExtracting  Stage = "extracting"
	StageChunking    Stage = "chunking"
	StageEmbedding   Stage = "embedding"
	StageSummarizing Stage = "summarizing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// Terminal reports whether no further transition may follow s within a run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// ProcessingStatus is the client-visible ingestion state of a source.
type ProcessingStatus struct {
	Stage        Stage     `json:"stage"`
	Progress     int       `json:"progress"`
	Message      string    `json:"message"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Source is one ingested document, web page, or video transcript.
type Source struct {
	ID         string                 `json:"id"`
	NotebookID string                 `json:"notebook_id"`
	Name       string                 `json:"name"`
	Kind       SourceKind             `json:"kind"`
	Content    string                 `json:"content,omitempty"`
	Status     ProcessingStatus       `json:"processing_status"`
	Summary    string                 `json:"summary,omitempty"`
	KeyPoints  []string               `json:"key_points,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	// OriginID identifies where the source was imported from (an inbox file), if anywhere.
	OriginID string `json:"origin_id,omitempty"`
	// Run increments on every ingestion run; a run only writes while it still owns the source.
	Run       int       `json:"run"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ready reports whether the source's content is visible to scoring.
func (s *Source) Ready() bool {
	return s != nil && s.Status.Stage == StageCompleted && s.Content != ""
}

// Clone returns a deep copy of s so readers never share mutable state with writers.
func (s *Source) Clone() *Source {
	if s == nil {
		return nil
	}
	c := *s
	if s.KeyPoints != nil {
		c.KeyPoints = append([]string(nil), s.KeyPoints...)
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// SourceInput describes a source to register. Exactly one of Data, URL, or Text
// carries the raw content depending on Kind.
type SourceInput struct {
	Kind     SourceKind `json:"kind"`
	Name     string     `json:"name,omitempty"`
	URL      string     `json:"url,omitempty"`
	Text     string     `json:"content,omitempty"`
	// Transcript is caption text (VTT/SRT) supplied with a youtube source.
	Transcript string `json:"transcript,omitempty"`
	Filename   string `json:"-"`
	Data       []byte `json:"-"`
	OriginID   string `json:"-"`
}
