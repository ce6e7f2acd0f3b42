package keyword

import (
	"errors"
	"testing"
)

type mapDictionary map[string]int

func (m mapDictionary) Terms() (map[string]int, error) { return m, nil }

type failingDictionary struct{}

func (failingDictionary) Terms() (map[string]int, error) { return nil, errors.New("dictionary unavailable") }

func TestNewSpellChecker_Options(t *testing.T) {
	sc := NewSpellChecker(mapDictionary{}, WithMaxDistance(1), WithMinFrequency(3), WithMaxSuggestions(2))
	if sc.maxDistance != 1 || sc.minFreq != 3 || sc.maxSuggestions != 2 {
		t.Errorf("options not applied: %+v", sc)
	}
	sc = NewSpellChecker(mapDictionary{}, WithMaxDistance(0), WithMaxSuggestions(-1))
	if sc.maxDistance != 2 || sc.maxSuggestions != 5 {
		t.Errorf("invalid options should keep defaults: %+v", sc)
	}
}

func TestSpellChecker_Suggest(t *testing.T) {
	dict := mapDictionary{"neural": 3, "natural": 1, "network": 2, "photosynthesis": 1}
	sc := NewSpellChecker(dict)

	got, err := sc.Suggest("Nueral")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].Term != "neural" || got[0].Distance != 1 {
		t.Fatalf("Suggest(nueral) = %+v", got)
	}

	got, _ = sc.Suggest("zzzzzz")
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
}

func TestSpellChecker_Suggest_RanksByFrequency(t *testing.T) {
	sc := NewSpellChecker(mapDictionary{"cart": 1, "card": 9})
	got, _ := sc.Suggest("carx")
	if len(got) != 2 || got[0].Term != "card" {
		t.Errorf("higher frequency should win at equal distance: %+v", got)
	}
}

func TestSpellChecker_Suggest_RespectsMinFrequency(t *testing.T) {
	sc := NewSpellChecker(mapDictionary{"learning": 1}, WithMinFrequency(2))
	if got, _ := sc.Suggest("lerning"); len(got) != 0 {
		t.Errorf("rare term should be ignored: %+v", got)
	}
}

func TestSpellChecker_Check(t *testing.T) {
	sc := NewSpellChecker(mapDictionary{"neural": 2, "networks": 2, "training": 1})
	tests := []struct {
		name      string
		query     string
		corrected string
		has       bool
	}{
		{"all known", "neural networks", "neural networks", false},
		{"one typo", "nueral networks", "neural networks", true},
		{"short terms untouched", "the nueral net", "the neural net", true},
		{"unknown without candidates", "quantum", "quantum", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := sc.Check(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if res.CorrectedQuery != tt.corrected || res.HasCorrections != tt.has {
				t.Errorf("Check(%q) = %q (%v), want %q (%v)", tt.query, res.CorrectedQuery, res.HasCorrections, tt.corrected, tt.has)
			}
		})
	}
}

func TestSpellChecker_SuggestedQuery(t *testing.T) {
	sc := NewSpellChecker(mapDictionary{"gradient": 1, "descent": 1})
	if got := sc.SuggestedQuery("gradiant descent"); got != "gradient descent" {
		t.Errorf("got %q", got)
	}
	if got := sc.SuggestedQuery("gradient descent"); got != "" {
		t.Errorf("no correction should give empty suggestion, got %q", got)
	}
}

func TestSpellChecker_DictionaryError(t *testing.T) {
	sc := NewSpellChecker(failingDictionary{})
	if _, err := sc.Check("anything"); err == nil {
		t.Error("expected error")
	}
	if _, err := sc.Suggest("anything"); err == nil {
		t.Error("expected error")
	}
	if got := sc.SuggestedQuery("anything"); got != "" {
		t.Errorf("errors should yield no suggestion, got %q", got)
	}
}
