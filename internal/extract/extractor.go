// Package extract turns raw source input (uploaded files, web pages, YouTube
// videos, pasted text) into a title, plain text content and metadata.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/tokenize"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// Extraction failure classes. Returned errors wrap one of these.
var (
	ErrNetwork           = errors.New("network error")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
)

// DefaultMaxBytes bounds uploads and fetched pages.
const DefaultMaxBytes = 20 << 20

const userAgent = "Mozilla/5.0 (compatible; ScribleBot/1.0)"

// Result is the output of a successful extraction.
type Result struct {
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// Extractor extracts plain text from source inputs.
type Extractor struct {
	client       *http.Client
	maxBytes     int64
	youtubeWatch string
	logger       *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient sets the client used for url and youtube sources.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		if c != nil {
			e.client = c
		}
	}
}

// WithMaxBytes sets the upload and download size limit.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// WithYouTubeWatchURL overrides the watch page prefix the video id is appended to.
func WithYouTubeWatchURL(prefix string) Option {
	return func(e *Extractor) {
		if prefix != "" {
			e.youtubeWatch = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = utils.OrNop(l)
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		client:       &http.Client{Timeout: 30 * time.Second},
		maxBytes:     DefaultMaxBytes,
		youtubeWatch: "https://www.youtube.com/watch?v=",
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces the title, content and metadata of in according to its kind.
// Content is never empty on success.
func (e *Extractor) Extract(ctx context.Context, in models.SourceInput) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch in.Kind {
	case models.KindPDF:
		res, err = e.extractFile(in, extractPDF)
	case models.KindDOCX:
		res, err = e.extractFile(in, extractDOCX)
	case models.KindTXT:
		res, err = e.extractText(in)
	case models.KindURL:
		res, err = e.extractWeb(ctx, in.URL)
	case models.KindYouTube:
		res, err = e.extractYouTube(ctx, in)
	default:
		return nil, fmt.Errorf("%w: source kind %q", ErrUnsupportedFormat, in.Kind)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Content) == "" {
		return nil, fmt.Errorf("%w: no text content found", ErrUnsupportedFormat)
	}
	if res.Title == "" {
		res.Title = defaultTitle(in)
	}
	if res.Metadata == nil {
		res.Metadata = make(map[string]interface{})
	}
	res.Metadata["word_count"] = tokenize.WordCount(res.Content)
	e.logger.Debug("extracted source",
		zap.String("kind", string(in.Kind)),
		zap.String("title", res.Title),
		zap.Int("chars", len(res.Content)))
	return res, nil
}

func (e *Extractor) extractFile(in models.SourceInput, fn func([]byte) (string, map[string]interface{}, error)) (*Result, error) {
	if len(in.Data) == 0 {
		// Reprocessing reuses previously extracted text.
		if in.Text != "" {
			return &Result{Title: in.Name, Content: in.Text}, nil
		}
		return nil, fmt.Errorf("%w: empty %s upload", ErrUnsupportedFormat, in.Kind)
	}
	if int64(len(in.Data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrSizeLimitExceeded, len(in.Data), e.maxBytes)
	}
	content, meta, err := fn(in.Data)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["file_size"] = len(in.Data)
	return &Result{Content: content, Metadata: meta}, nil
}

func (e *Extractor) extractText(in models.SourceInput) (*Result, error) {
	if in.Text != "" {
		if int64(len(in.Text)) > e.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrSizeLimitExceeded, len(in.Text), e.maxBytes)
		}
		return &Result{Content: in.Text}, nil
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	return e.extractFile(in, func(b []byte) (string, map[string]interface{}, error) {
		if ext == ".vtt" || ext == ".srt" {
			return ParseSubtitles(string(b)), nil, nil
		}
		return extractPlain(b), nil, nil
	})
}

// defaultTitle names a source when the content itself carries no title.
func defaultTitle(in models.SourceInput) string {
	switch {
	case in.Name != "":
		return in.Name
	case in.Filename != "":
		return filepath.Base(in.Filename)
	case in.URL != "":
		return in.URL
	}
	return "Untitled " + string(in.Kind)
}

// KindForFilename infers the source kind from a file extension. Caption files
// are treated as youtube transcripts.
func KindForFilename(name string) (models.SourceKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return models.KindPDF, true
	case ".docx":
		return models.KindDOCX, true
	case ".txt", ".md", ".rst":
		return models.KindTXT, true
	case ".vtt", ".srt":
		return models.KindYouTube, true
	}
	return "", false
}
