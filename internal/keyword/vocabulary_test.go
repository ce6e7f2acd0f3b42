package keyword

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestVocabulary_IndexAndSuggest(t *testing.T) {
	v := NewVocabulary(zap.NewNop())
	defer v.Close()
	ctx := context.Background()

	if err := v.IndexSource(ctx, "nb1", "s1", "ml-notes.txt", "Neural networks learn representations from training data."); err != nil {
		t.Fatal(err)
	}
	if err := v.IndexSource(ctx, "nb1", "s2", "bio.txt", "Photosynthesis converts light into chemical energy."); err != nil {
		t.Fatal(err)
	}

	if n, _ := v.DocCount("nb1"); n != 2 {
		t.Errorf("DocCount = %d, want 2", n)
	}
	terms, err := v.Dictionary("nb1").Terms()
	if err != nil {
		t.Fatal(err)
	}
	if terms["neural"] != 1 || terms["photosynthesis"] != 1 {
		t.Errorf("dictionary missing terms: %v", terms)
	}

	if got := v.Suggest(ctx, "nb1", "nueral netwrks"); got != "neural networks" {
		t.Errorf("Suggest = %q", got)
	}
	if got := v.Suggest(ctx, "nb2", "nueral"); got != "" {
		t.Errorf("other notebooks have their own vocabulary, got %q", got)
	}
}

func TestVocabulary_Remove(t *testing.T) {
	v := NewVocabulary(nil)
	defer v.Close()
	ctx := context.Background()
	_ = v.IndexSource(ctx, "nb1", "s1", "a.txt", "Mitochondria produce energy.")

	if err := v.RemoveSource(ctx, "nb1", "s1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := v.DocCount("nb1"); n != 0 {
		t.Errorf("DocCount after remove = %d", n)
	}
	if err := v.RemoveSource(ctx, "missing", "s1"); err != nil {
		t.Errorf("removing from unknown notebook: %v", err)
	}

	if v.index("nb1") != nil {
		t.Error("index should be dropped once its last source is removed")
	}

	_ = v.IndexSource(ctx, "nb1", "s2", "b.txt", "Ribosomes build proteins.")
	if err := v.RemoveNotebook(ctx, "nb1"); err != nil {
		t.Fatal(err)
	}
	terms, _ := v.Dictionary("nb1").Terms()
	if len(terms) != 0 {
		t.Errorf("removed notebook should have no terms, got %v", terms)
	}
}

func TestVocabulary_LateIndexAfterNotebookRemoval(t *testing.T) {
	v := NewVocabulary(nil)
	defer v.Close()
	ctx := context.Background()
	_ = v.IndexSource(ctx, "nb1", "s1", "a.txt", "Mitochondria produce energy.")
	_ = v.IndexSource(ctx, "nb1", "s2", "b.txt", "Ribosomes build proteins.")

	if err := v.RemoveSource(ctx, "nb1", "s1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := v.DocCount("nb1"); n != 1 {
		t.Fatalf("DocCount = %d, want 1", n)
	}

	if err := v.RemoveNotebook(ctx, "nb1"); err != nil {
		t.Fatal(err)
	}
	// A run still in flight indexes its source, then cleans up after itself.
	if err := v.IndexSource(ctx, "nb1", "s3", "c.txt", "Chloroplasts capture light."); err != nil {
		t.Fatal(err)
	}
	if err := v.RemoveSource(ctx, "nb1", "s3"); err != nil {
		t.Fatal(err)
	}
	v.mu.RLock()
	n := len(v.indexes)
	v.mu.RUnlock()
	if n != 0 {
		t.Errorf("indexes left behind: %d", n)
	}
}
