package ingest

import (
	"math/rand"
	"strings"
	"testing"
)

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(3, 1)
	chunks := c.Chunk("src1", "one two three four five six seven")
	want := []string{"one two three", "three four five", "five six seven"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, ch := range chunks {
		if ch.Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, ch.Text, want[i])
		}
		if ch.Index != i {
			t.Errorf("chunk %d Index=%d", i, ch.Index)
		}
		if !strings.HasPrefix(ch.ID, "src1_") {
			t.Errorf("chunk ID = %q", ch.ID)
		}
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := NewChunker(5, 1)
	if chunks := c.Chunk("d", "   \n\t  "); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

func TestChunker_OverlapNotSmallerThanSize(t *testing.T) {
	c := NewChunker(2, 5)
	chunks := c.Chunk("d", "a b c")
	if len(chunks) != 2 || chunks[1].Text != "b c" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestOutcomes(t *testing.T) {
	if !AlwaysSucceed.Succeed("x") || AlwaysFail.Succeed("x") {
		t.Error("fixed outcomes inverted")
	}
	rng := rand.New(rand.NewSource(1))
	always := RandomOutcome(1, rng)
	never := RandomOutcome(0, rng)
	for i := 0; i < 20; i++ {
		if !always.Succeed("x") {
			t.Fatal("rate 1 should always succeed")
		}
		if never.Succeed("x") {
			t.Fatal("rate 0 should never succeed")
		}
	}
}

func TestStepFor(t *testing.T) {
	prev := 0
	for _, s := range Plan {
		got, ok := StepFor(s.Stage)
		if !ok || got.Progress != s.Progress {
			t.Errorf("StepFor(%s) = %+v, %v", s.Stage, got, ok)
		}
		if s.Progress <= prev {
			t.Errorf("progress of %s does not increase", s.Stage)
		}
		prev = s.Progress
	}
	if _, ok := StepFor("failed"); ok {
		t.Error("failed has no plan step")
	}
	if InitialStatus().Progress != 10 {
		t.Error("initial progress should be 10")
	}
}
