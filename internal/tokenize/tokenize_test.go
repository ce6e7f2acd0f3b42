package tokenize

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	if got := Normalize("  a  b \n\t c  "); got != "a b c" {
		t.Errorf("Normalize: got %q", got)
	}
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "splits on terminal punctuation",
			text: "Machine learning is powerful. The weather is nice.",
			want: []string{"Machine learning is powerful", "The weather is nice"},
		},
		{
			name: "drops short fragments",
			text: "Intro. Ok! This sentence is long enough? Yes.",
			want: []string{"This sentence is long enough"},
		},
		{
			name: "collapses whitespace inside sentences",
			text: "Deep   learning\nmodels need data!!! Really.",
			want: []string{"Deep learning models need data"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"Machine Learning", []string{"machine", "learning"}},
		{"what is AI?", []string{"what"}},
		{"neural-networks, neural nets", []string{"neural", "networks", "nets"}},
		{"a an of", []string{}},
		{"GPT4 vs GPT3", []string{"gpt4", "gpt3"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := QueryTerms(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QueryTerms(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestQueryTermsDeterministic(t *testing.T) {
	a := QueryTerms("data science and data engineering")
	b := QueryTerms("data science and data engineering")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("non-deterministic terms: %v vs %v", a, b)
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount(" one two\nthree "); got != 3 {
		t.Errorf("WordCount: got %d", got)
	}
}

func TestWords(t *testing.T) {
	got := Words("The model's accuracy, 95%!")
	want := []string{"the", "model's", "accuracy", "95"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words: got %q, want %q", got, want)
	}
}
