package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

// DefaultServerURL is where the CLI looks for a running server.
const DefaultServerURL = "http://localhost:8080"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the Scrible HTTP API on behalf of one user.
type Client struct {
	baseURL string
	user    string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL acting as user.
func NewClient(baseURL, user string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    user,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(b, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", body, out)
}

func notebookPath(id string, rest ...string) string {
	return "/api/v1/notebooks/" + id + strings.Join(rest, "")
}

// Status returns server counts and configuration.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListNotebooks returns the user's notebooks.
func (c *Client) ListNotebooks(ctx context.Context) ([]*Notebook, error) {
	var out struct {
		Notebooks []*Notebook `json:"notebooks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/notebooks", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Notebooks, nil
}

// CreateNotebook creates a notebook named name.
func (c *Client) CreateNotebook(ctx context.Context, name, description string) (*Notebook, error) {
	in := models.NotebookInput{Name: name}
	if description != "" {
		in.Description = &description
	}
	var nb Notebook
	if err := c.postJSON(ctx, "/api/v1/notebooks", in, &nb); err != nil {
		return nil, err
	}
	return &nb, nil
}

// Search ranks the notebook's sources against query.
func (c *Client) Search(ctx context.Context, notebookID, query string, limit int) (*models.QueryResponse, error) {
	var resp models.QueryResponse
	req := models.QueryRequest{Query: query, Limit: limit}
	if err := c.postJSON(ctx, notebookPath(notebookID, "/search"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chat asks a question of the notebook.
func (c *Client) Chat(ctx context.Context, notebookID, message string) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := c.postJSON(ctx, notebookPath(notebookID, "/chat"), models.ChatRequest{Message: message}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddSource submits a url, youtube or text source.
func (c *Client) AddSource(ctx context.Context, notebookID string, in models.SourceInput) (*models.Source, error) {
	var src models.Source
	if err := c.postJSON(ctx, notebookPath(notebookID, "/sources"), in, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

// UploadFile uploads the file at path as a source. kind may be empty to let
// the server infer it from the extension.
func (c *Client) UploadFile(ctx context.Context, notebookID, path string, kind models.SourceKind) (*models.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if kind != "" {
		if err := mw.WriteField("kind", string(kind)); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var src models.Source
	if err := c.do(ctx, http.MethodPost, notebookPath(notebookID, "/sources"), mw.FormDataContentType(), &body, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

// SourceStatus returns the processing status of a source.
func (c *Client) SourceStatus(ctx context.Context, notebookID, sourceID string) (*models.ProcessingStatus, error) {
	var st models.ProcessingStatus
	if err := c.do(ctx, http.MethodGet, notebookPath(notebookID, "/sources/", sourceID, "/status"), "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// WaitForSource polls until the source reaches a terminal stage or ctx ends.
func (c *Client) WaitForSource(ctx context.Context, notebookID, sourceID string, interval time.Duration) (*models.ProcessingStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.SourceStatus(ctx, notebookID, sourceID)
		if err != nil {
			return nil, err
		}
		if st.Stage.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}
