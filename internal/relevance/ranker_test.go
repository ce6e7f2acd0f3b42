package relevance

import (
	"fmt"
	"strings"
	"testing"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

func readySource(id, content string) *models.Source {
	return &models.Source{
		ID:      id,
		Name:    "Source " + id,
		Kind:    models.KindTXT,
		Content: content,
		Status:  models.ProcessingStatus{Stage: models.StageCompleted, Progress: 100},
	}
}

func TestRanker_Rank_SortsByRelevance(t *testing.T) {
	weak := readySource("weak", "Quantum effects are strange indeed.")
	strong := readySource("strong", "Quantum computing research is advancing quickly.")
	pending := readySource("pending", "Quantum computing research is everywhere here.")
	pending.Status = models.ProcessingStatus{Stage: models.StageEmbedding, Progress: 60}
	none := readySource("none", "The weather is nice today.")

	r := NewRanker(nil)
	got := r.Rank("quantum computing research", []*models.Source{weak, strong, pending, none}, SearchLimit)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].SourceID != "strong" || got[1].SourceID != "weak" {
		t.Errorf("order = %s, %s", got[0].SourceID, got[1].SourceID)
	}
	if got[0].Relevance != 1 {
		t.Errorf("strong relevance = %v, want 1", got[0].Relevance)
	}
	if got[1].Relevance <= 0.39 || got[1].Relevance >= 0.41 {
		t.Errorf("weak relevance = %v, want 0.4", got[1].Relevance)
	}
	if got[0].SourceType != models.KindTXT || got[0].SourceName != "Source strong" {
		t.Errorf("provenance missing: %+v", got[0])
	}
}

func TestRanker_Rank_TiesKeepInsertionOrder(t *testing.T) {
	content := "Neural networks learn representations from data."
	sources := []*models.Source{
		readySource("c", content),
		readySource("a", content),
		readySource("b", content),
	}
	got := NewRanker(nil).Rank("neural networks", sources, 0)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.SourceID
	}
	if strings.Join(ids, ",") != "c,a,b" {
		t.Errorf("tie order = %v, want c,a,b", ids)
	}
}

func TestRanker_Rank_Limits(t *testing.T) {
	sources := make([]*models.Source, 0, 12)
	for i := 0; i < 12; i++ {
		sources = append(sources, readySource(fmt.Sprintf("s%d", i), "Embedding models encode meaning into vectors."))
	}
	r := NewRanker(nil)
	if got := r.Rank("embedding vectors", sources, SearchLimit); len(got) != 10 {
		t.Errorf("search limit: got %d", len(got))
	}
	if got := r.Rank("embedding vectors", sources, ChatLimit); len(got) != 5 {
		t.Errorf("chat limit: got %d", len(got))
	}
}

func TestRanker_Rank_Empty(t *testing.T) {
	r := NewRanker(nil)
	got := r.Rank("is a", []*models.Source{readySource("x", "Anything at all is written here.")}, ChatLimit)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
	if got := r.Rank("anything", nil, ChatLimit); len(got) != 0 {
		t.Errorf("no sources: got %d", len(got))
	}
}

func TestRanker_Rank_DeletedSourceDisappears(t *testing.T) {
	a := readySource("a", "Graph databases store relationships natively.")
	b := readySource("b", "Relational databases store rows in tables.")
	r := NewRanker(nil)
	before := r.Rank("databases", []*models.Source{a, b}, SearchLimit)
	if len(before) != 2 {
		t.Fatalf("before delete: %d results", len(before))
	}
	after := r.Rank("databases", []*models.Source{b}, SearchLimit)
	if len(after) != 1 || after[0].SourceID != "b" {
		t.Errorf("after delete: %+v", after)
	}
	if after[0].Relevance != before[1].Relevance && after[0].Relevance != before[0].Relevance {
		t.Error("remaining source score should be unaffected")
	}
}

func TestTopN(t *testing.T) {
	results := []*models.RankedResult{{SourceID: "1"}, {SourceID: "2"}, {SourceID: "3"}}
	if got := TopN(results, 2); len(got) != 2 {
		t.Errorf("TopN(2) = %d", len(got))
	}
	if got := TopN(results, 0); len(got) != 3 {
		t.Errorf("TopN(0) = %d", len(got))
	}
}

func BenchmarkRanker_Rank(b *testing.B) {
	paragraph := strings.Repeat("Retrieval augmented generation combines search with language models. ", 40)
	sources := make([]*models.Source, 50)
	for i := range sources {
		sources[i] = readySource(fmt.Sprintf("s%d", i), paragraph)
	}
	r := NewRanker(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Rank("retrieval language models", sources, SearchLimit)
	}
}
