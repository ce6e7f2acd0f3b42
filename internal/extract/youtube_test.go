package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"https://youtube.com/shorts/abcDEF12345", "abcDEF12345", false},
		{"https://www.youtube.com/embed/abcDEF12345", "abcDEF12345", false},
		{"https://vimeo.com/12345678", "", true},
		{"https://www.youtube.com/feed/trending", "", true},
		{"not a url", "", true},
	}
	for _, tt := range tests {
		got, err := YouTubeVideoID(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("YouTubeVideoID(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("YouTubeVideoID(%q) error should wrap ErrUnsupportedFormat", tt.url)
		}
		if got != tt.want {
			t.Errorf("YouTubeVideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestParseSubtitles(t *testing.T) {
	vtt := "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nWelcome to the lecture.\n\n2\n00:00:02.000 --> 00:00:04.000\n<c>ignored markup</c>\nToday we cover entropy.\n"
	if got := ParseSubtitles(vtt); got != "Welcome to the lecture. Today we cover entropy." {
		t.Errorf("ParseSubtitles = %q", got)
	}
	if got := ParseSubtitles(""); got != "" {
		t.Errorf("empty input gave %q", got)
	}
}

func TestExtract_youtubeTranscript(t *testing.T) {
	in := models.SourceInput{
		Kind:       models.KindYouTube,
		URL:        "https://youtu.be/dQw4w9WgXcQ",
		Transcript: "1\n00:00:01,000 --> 00:00:03,000\nEntropy measures disorder.\n",
	}
	res, err := NewExtractor().Extract(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "Entropy measures disorder." {
		t.Errorf("content = %q", res.Content)
	}
	if res.Metadata["video_id"] != "dQw4w9WgXcQ" || res.Metadata["extraction_method"] != "transcript" {
		t.Errorf("metadata = %v", res.Metadata)
	}
}

func TestExtract_youtubeStoredText(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"captions only", ""},
		{"with link", "https://youtu.be/dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := models.SourceInput{Kind: models.KindYouTube, Name: "lecture", URL: tt.url, Text: "Entropy measures disorder."}
			res, err := NewExtractor().Extract(context.Background(), in)
			if err != nil {
				t.Fatal(err)
			}
			if res.Content != "Entropy measures disorder." || res.Title != "lecture" {
				t.Errorf("result = %+v", res)
			}
			if res.Metadata["extraction_method"] != "stored" {
				t.Errorf("metadata = %v", res.Metadata)
			}
		})
	}

	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindYouTube})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("empty youtube input: %v", err)
	}
}

func TestExtract_youtubeWatchPage(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	e := NewExtractor(WithHTTPClient(srv.Client()), WithYouTubeWatchURL(srv.URL+"/watch?v="))
	res, err := e.Extract(context.Background(), models.SourceInput{Kind: models.KindYouTube, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "v=dQw4w9WgXcQ" {
		t.Errorf("fetched query %q", gotPath)
	}
	if res.Title != "Deep Learning Basics" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Content != "An introduction to neural networks and backpropagation." {
		t.Errorf("content = %q", res.Content)
	}
	if res.Metadata["extraction_method"] != "page_metadata" {
		t.Errorf("metadata = %v", res.Metadata)
	}
}

func TestExtract_youtubeRejectsOtherHosts(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindYouTube, URL: "https://example.com/watch?v=abcdefghijk"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestKindForFilename(t *testing.T) {
	tests := map[string]models.SourceKind{
		"paper.PDF":  models.KindPDF,
		"draft.docx": models.KindDOCX,
		"notes.md":   models.KindTXT,
		"talk.vtt":   models.KindYouTube,
	}
	for name, want := range tests {
		if got, ok := KindForFilename(name); !ok || got != want {
			t.Errorf("KindForFilename(%q) = %q, %v", name, got, ok)
		}
	}
	if _, ok := KindForFilename("sheet.xlsx"); ok {
		t.Error("xlsx should not map to a kind")
	}
}
