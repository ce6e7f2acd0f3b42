package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

// scriptedGenerator returns replies in order, then errors.
type scriptedGenerator struct {
	replies []string
	errs    []error
	calls   [][]Message
}

func (g *scriptedGenerator) Generate(_ context.Context, messages []Message) (string, error) {
	i := len(g.calls)
	g.calls = append(g.calls, messages)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", errors.New("no more replies")
}

var sampleDoc = Document{
	Kind:    models.KindPDF,
	Title:   "Climate",
	Content: "Global temperatures rose sharply during the last decade.",
}

func TestSummarizer_NoGenerator(t *testing.T) {
	d := NewSummarizer(nil).SummarizeSource(context.Background(), sampleDoc)
	if d.Generated {
		t.Error("expected fallback digest")
	}
	if !strings.HasPrefix(d.Summary, "Brief pdf titled 'Climate'") {
		t.Errorf("Summary = %q", d.Summary)
	}
	if len(d.KeyPoints) == 0 {
		t.Error("expected key points")
	}
}

func TestSummarizer_SourceGenerated(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"Temperatures are rising.",
		"Here are the points:\n1. Warming accelerated\n2) Oceans absorb heat\n- Ice is melting\nclosing remark",
	}}
	d := NewSummarizer(gen, WithMaxContentChars(10)).SummarizeSource(context.Background(), sampleDoc)
	if !d.Generated || d.Summary != "Temperatures are rising." {
		t.Fatalf("digest = %+v", d)
	}
	want := []string{"Warming accelerated", "Oceans absorb heat", "Ice is melting"}
	if strings.Join(d.KeyPoints, "|") != strings.Join(want, "|") {
		t.Errorf("KeyPoints = %q", d.KeyPoints)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("calls = %d", len(gen.calls))
	}
	if gen.calls[0][0].Role != RoleSystem || !strings.Contains(gen.calls[0][1].Content, "[content truncated]") {
		t.Errorf("summary request = %+v", gen.calls[0])
	}
}

func TestSummarizer_SourceFallsBackOnError(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("boom")}}
	d := NewSummarizer(gen).SummarizeSource(context.Background(), sampleDoc)
	if d.Generated {
		t.Error("expected fallback digest after generator error")
	}
	if !strings.HasPrefix(d.Summary, "Brief pdf") {
		t.Errorf("Summary = %q", d.Summary)
	}
}

func TestSummarizer_KeyPointErrorKeepsSummary(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"Generated summary."}}
	d := NewSummarizer(gen).SummarizeSource(context.Background(), sampleDoc)
	if !d.Generated || d.Summary != "Generated summary." {
		t.Fatalf("digest = %+v", d)
	}
	if len(d.KeyPoints) == 0 {
		t.Error("expected fallback key points")
	}
}

func TestSummarizer_Notebook(t *testing.T) {
	docs := []Document{sampleDoc, {Kind: models.KindURL, Title: "Oceans", Content: "Sea levels keep rising along the coasts."}}

	gen := &scriptedGenerator{replies: []string{"Both sources discuss warming.", "1. Warming\n2. Sea level"}}
	d := NewSummarizer(gen).SummarizeNotebook(context.Background(), docs)
	if !d.Generated || d.Summary != "Both sources discuss warming." {
		t.Fatalf("digest = %+v", d)
	}
	if len(d.KeyPoints) != 2 {
		t.Errorf("KeyPoints = %q", d.KeyPoints)
	}
	if !strings.Contains(gen.calls[0][1].Content, "Source: Oceans (url)") {
		t.Errorf("context = %q", gen.calls[0][1].Content)
	}

	fb := NewSummarizer(&scriptedGenerator{errs: []error{errors.New("down")}}).SummarizeNotebook(context.Background(), docs)
	if fb.Generated || !strings.HasPrefix(fb.Summary, "This notebook contains 2 ready sources") {
		t.Errorf("fallback = %+v", fb)
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want []string
	}{
		{"numbered", "1. a\n2. b", 0, []string{"a", "b"}},
		{"bullets", "- a\n• b\n* c", 0, []string{"a", "b", "c"}},
		{"ignores prose", "Intro\n1. a\n\nOutro", 0, []string{"a"}},
		{"caps", "1. a\n2. b\n3. c", 2, []string{"a", "b"}},
		{"empty markers", "1.\n-", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseList(tt.in, tt.max)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
