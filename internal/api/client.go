package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/models"
)

const DefaultRootURL = "http://localhost:8000"

// Client speaks the document QA backend's HTTP contract. All endpoints live
// under <root>/api except the health probe, which is served at the root.
type Client struct {
	rootURL string
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

func New(rootURL string, logger *zap.Logger) *Client {
	if rootURL == "" {
		rootURL = DefaultRootURL
	}
	rootURL = strings.TrimRight(rootURL, "/")

	return &Client{
		rootURL: rootURL,
		baseURL: rootURL + "/api",
		httpc:   &http.Client{},
		logger:  logger,
	}
}

// UploadResult is the backend's response to a single-file upload.
type UploadResult struct {
	Filename           string                     `json:"filename"`
	Documents          []string                   `json:"documents"`
	ChunksAdded        int                        `json:"chunks_added"`
	FileURL            string                     `json:"file_url"`
	PostprocessOptions []models.PostprocessOption `json:"postprocess_options"`
}

// ChatResult is the backend's answer to a chat query.
type ChatResult struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// ProcessResult is the backend's response to a post-processing request.
type ProcessResult struct {
	Result  string          `json:"result"`
	Label   string          `json:"label"`
	Sources json.RawMessage `json:"sources"`
}

// Upload posts one file as multipart form field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDocuments fetches the document list, normalizing the three response
// shapes the backend has shipped over time. A 404 means no index exists yet
// and maps to an empty list.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/docs", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return normalizeDocuments(raw)
}

// DeleteDocument removes one document from the backend index. The response
// body is ignored; any 2xx status is confirmation.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/documents/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Chat runs one RAG query. A non-empty document narrows retrieval to that
// document; otherwise the search is unscoped.
func (c *Client) Chat(ctx context.Context, query string, k int, document string) (*ChatResult, error) {
	payload := map[string]any{
		"query": query,
		"k":     k,
	}
	if document != "" {
		payload["document"] = document
	}

	var result ChatResult
	if err := c.postJSON(ctx, "/chat", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs a one-shot retrieval query without any chat semantics.
func (c *Client) Search(ctx context.Context, query string, k int) (*ChatResult, error) {
	u := fmt.Sprintf("%s/search?q=%s&k=%d", c.baseURL, url.QueryEscape(query), k)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var result ChatResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Process runs a post-upload option (summary, key points, ...) for a document.
func (c *Client) Process(ctx context.Context, filename, option string, k int) (*ProcessResult, error) {
	payload := map[string]any{
		"filename": filename,
		"option":   option,
		"k":        k,
	}

	var result ProcessResult
	if err := c.postJSON(ctx, "/process", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Feedback submits a user feedback form.
func (c *Client) Feedback(ctx context.Context, name, email, subject, message string) error {
	payload := map[string]any{
		"name":    name,
		"email":   email,
		"subject": subject,
		"message": message,
	}
	return c.postJSON(ctx, "/feedback", payload, nil)
}

// Health probes the backend's root health route. Used at startup to log
// reachability; callers treat failure as non-fatal.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rootURL+"/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{Err: err}
	}
	return nil
}

// decodeError turns a non-2xx response into an *Error, preferring the
// backend's JSON "detail" field and falling back to the raw body text.
func (c *Client) decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var detail struct {
		Detail string `json:"detail"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		message = detail.Detail
	}

	c.logger.Debug("backend request failed",
		zap.String("url", resp.Request.URL.String()),
		zap.Int("status", resp.StatusCode))

	return &Error{Status: resp.StatusCode, Detail: message}
}
