package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

func minimalDocx(t *testing.T, docPath string, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if docPath != docxDocumentXMLPath {
		w, _ := zw.Create(contentTypesPath)
		_, _ = w.Write([]byte(`<Types><Override ContentType="` + docxMainContentType + `" PartName="/` + docPath + `"/></Types>`))
	}
	w, err := zw.Create(docPath)
	if err != nil {
		t.Fatal(err)
	}
	var body strings.Builder
	body.WriteString(`<w:document><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r><w:r><w:t>!</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	_, _ = w.Write([]byte(body.String()))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_txt(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name string
		in   models.SourceInput
		want string
	}{
		{"pasted text", models.SourceInput{Kind: models.KindTXT, Name: "notes", Text: "Hello world."}, "Hello world."},
		{"uploaded file", models.SourceInput{Kind: models.KindTXT, Filename: "a.md", Data: []byte("# Title\nBody")}, "# Title\nBody"},
		{"invalid utf8", models.SourceInput{Kind: models.KindTXT, Filename: "a.txt", Data: []byte("ok \xff done")}, "ok � done"},
		{"caption upload", models.SourceInput{Kind: models.KindTXT, Filename: "talk.srt", Data: []byte("1\n00:00:01,000 --> 00:00:02,000\nHello there\n")}, "Hello there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Extract(context.Background(), tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if res.Content != tt.want {
				t.Errorf("content = %q, want %q", res.Content, tt.want)
			}
			if res.Title == "" {
				t.Error("title should default")
			}
			if _, ok := res.Metadata["word_count"]; !ok {
				t.Error("word_count missing")
			}
		})
	}
}

func TestExtract_emptyContentFails(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindTXT, Filename: "x.txt", Data: []byte("   \n")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_sizeLimit(t *testing.T) {
	e := NewExtractor(WithMaxBytes(8))
	_, err := e.Extract(context.Background(), models.SourceInput{Kind: models.KindDOCX, Filename: "big.docx", Data: make([]byte, 9)})
	if !errors.Is(err, ErrSizeLimitExceeded) {
		t.Errorf("expected ErrSizeLimitExceeded, got %v", err)
	}
}

func TestExtract_unknownKind(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: "xlsx"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_docx(t *testing.T) {
	tests := []struct {
		name    string
		docPath string
	}{
		{"default part", docxDocumentXMLPath},
		{"part from content types", "word/document2.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := minimalDocx(t, tt.docPath, "First &amp; foremost", "Second paragraph")
			res, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindDOCX, Filename: "paper.docx", Data: data})
			if err != nil {
				t.Fatal(err)
			}
			if res.Content != "First & foremost!\nSecond paragraph!" {
				t.Errorf("content = %q", res.Content)
			}
			if res.Title != "paper.docx" {
				t.Errorf("title = %q", res.Title)
			}
			if res.Metadata["paragraphs"] != 2 {
				t.Errorf("paragraphs = %v", res.Metadata["paragraphs"])
			}
		})
	}
}

func TestExtract_docxNotZip(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindDOCX, Data: []byte("plain")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_pdfInvalid(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindPDF, Data: []byte("%PDF-1.4 truncated")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_storedTextIsReused(t *testing.T) {
	res, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindPDF, Name: "paper.pdf", Text: "Already extracted."})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "Already extracted." || res.Title != "paper.pdf" {
		t.Errorf("got %+v", res)
	}
}

const samplePage = `<!DOCTYPE html>
<html><head><title> Deep Learning Basics </title><style>body{color:red}</style>
<meta property="og:title" content="Deep Learning Basics">
<meta property="og:description" content="An introduction to neural networks and backpropagation.">
</head>
<body>
<header>Site header</header>
<nav><a href="/">Home</a></nav>
<main><h1>Neural networks</h1><p>Neural networks learn   weights.</p><script>var x = 1;</script><p>Backpropagation computes gradients.</p></main>
<footer>Copyright</footer>
</body></html>`

func TestExtract_web(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(samplePage))
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"a":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	e := NewExtractor(WithHTTPClient(srv.Client()))
	ctx := context.Background()

	res, err := e.Extract(ctx, models.SourceInput{Kind: models.KindURL, URL: srv.URL + "/article"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Deep Learning Basics" {
		t.Errorf("title = %q", res.Title)
	}
	want := "Neural networks\nNeural networks learn weights.\nBackpropagation computes gradients."
	if res.Content != want {
		t.Errorf("content = %q, want %q", res.Content, want)
	}
	if res.Metadata["domain"] == "" || res.Metadata["url"] != srv.URL+"/article" {
		t.Errorf("metadata = %v", res.Metadata)
	}

	if _, err := e.Extract(ctx, models.SourceInput{Kind: models.KindURL, URL: srv.URL + "/missing"}); !errors.Is(err, ErrNetwork) {
		t.Errorf("404 should be a network error, got %v", err)
	}
	if _, err := e.Extract(ctx, models.SourceInput{Kind: models.KindURL, URL: srv.URL + "/data.json"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("json should be unsupported, got %v", err)
	}
	if _, err := e.Extract(ctx, models.SourceInput{Kind: models.KindURL, URL: "ftp://example.com/x"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ftp should be unsupported, got %v", err)
	}

	small := NewExtractor(WithHTTPClient(srv.Client()), WithMaxBytes(64))
	if _, err := small.Extract(ctx, models.SourceInput{Kind: models.KindURL, URL: srv.URL + "/article"}); !errors.Is(err, ErrSizeLimitExceeded) {
		t.Errorf("expected size limit error, got %v", err)
	}
}

func TestExtract_webUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	_, err := NewExtractor().Extract(context.Background(), models.SourceInput{Kind: models.KindURL, URL: addr})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
