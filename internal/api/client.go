// Package api is the client for the Victor Springs REST backend. It
// covers exactly the endpoints the verification and tenancy workflows
// consume; everything else the backend exposes is out of scope here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wachira567/victorsprings-client/internal/session"
)

// APIError is a non-2xx response from the backend. Message carries the
// backend's user-facing message field when one was present.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (%d)", e.Status)
}

// UserMessage returns the backend-provided message from err when err is
// an *APIError carrying one, otherwise the per-action fallback. This is
// the single place the "verbatim if present, generic otherwise" rule
// lives.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Attachment is a document held client-side until submission. The
// draft that owns it hands the bytes to the backend on submit.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client manages communication with the Victor Springs backend.
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	Tokens     session.TokenSource
}

// NewClient initializes a backend client. Timeout covers a whole
// request including the response body read.
func NewClient(baseURL string, tokens session.TokenSource, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    parsed,
		HTTPClient: &http.Client{Timeout: timeout},
		Tokens:     tokens,
	}, nil
}

// doJSON builds, executes and parses a JSON request against the
// backend, attaching the bearer credential.
func (c *Client) doJSON(ctx context.Context, method, reqPath string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := c.newRequest(ctx, method, reqPath, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.execute(req, out)
}

// multipartField is one text field of a multipart submission.
type multipartField struct {
	Name  string
	Value string
}

// multipartFile is one attachment of a multipart submission.
type multipartFile struct {
	Name       string
	Attachment Attachment
}

// doMultipart assembles a single multipart/form-data request from text
// fields and attachments. An Idempotency-Key header guards the terminal
// submit endpoints against duplicate delivery on retry.
func (c *Client) doMultipart(ctx context.Context, reqPath string, fields []multipartField, files []multipartFile, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", f.Name, err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.Name, f.Attachment.Filename)
		if err != nil {
			return fmt.Errorf("failed to create form file %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Attachment.Data); err != nil {
			return fmt.Errorf("failed to write form file %s: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, reqPath, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Idempotency-Key", uuid.NewString())

	return c.execute(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, reqPath string, body io.Reader) (*http.Request, error) {
	u := *c.BaseURL
	u.Path = path.Join(c.BaseURL.Path, reqPath)
	if i := strings.IndexByte(reqPath, '?'); i >= 0 {
		u.Path = path.Join(c.BaseURL.Path, reqPath[:i])
		u.RawQuery = reqPath[i+1:]
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Tokens != nil {
		if tok := c.Tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) execute(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleHTTPError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// handleHTTPError parses a 4xx/5xx body into an *APIError. The backend
// responds with {"code": ..., "message": ...}; anything unparseable is
// kept as raw text so nothing user-relevant is dropped.
func handleHTTPError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil || (parsed.Message == "" && parsed.Code == "") {
		parsed.Message = strings.TrimSpace(string(bodyBytes))
	}

	return &APIError{
		Status:  resp.StatusCode,
		Code:    parsed.Code,
		Message: parsed.Message,
	}
}
