// Package gateway is the single HTTP client shared by every API call.
// It resolves paths against the API base URL, keeps the session cookie jar,
// attaches the bearer token, decodes error payloads and notifies observers
// of failed calls.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/logging"
)

const (
	// DefaultOrigin is used when the base URL is relative.
	DefaultOrigin = "http://localhost:8080"

	defaultTimeout       = 30 * time.Second
	idempotencyKeyHeader = "Idempotency-Key"
	maxErrorBody         = 64 << 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is API_URL + "/api/v1/". A relative value is resolved against
	// DefaultOrigin.
	BaseURL string
	Timeout time.Duration
	// LegacyExpiryMessages also treats the three known session expiry
	// messages as expiry when the server sends no code.
	LegacyExpiryMessages bool
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Request is a single API call.
type Request struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        any
	// Multipart sends multipart/form-data: Body becomes the JSON "body" part,
	// followed by Files.
	Multipart bool
	Files     []File
}

// File is one file part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// Observer is called for every failed call. It must not block.
type Observer func(err *Error)

// Client is safe for concurrent use.
type Client struct {
	http   *http.Client
	jar    *jar
	base   *url.URL
	legacy bool
	logger *slog.Logger

	mu        sync.RWMutex
	token     string
	observers map[int]Observer
	nextID    int
}

// New builds a Client with an empty cookie jar.
func New(cfg Config) (*Client, error) {
	base, err := resolveBase(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	j, err := newJar()
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := logging.Component(cfg.Logger, "gateway")
	return &Client{
		http:      &http.Client{Jar: j, Timeout: cfg.Timeout, Transport: cfg.Transport},
		jar:       j,
		base:      base,
		legacy:    cfg.LegacyExpiryMessages,
		logger:    logger,
		observers: make(map[int]Observer),
	}, nil
}

func resolveBase(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !u.IsAbs() {
		origin, _ := url.Parse(DefaultOrigin)
		u = origin.ResolveReference(u)
	}
	return u, nil
}

// BaseURL returns the absolute base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Cookies returns the cookies the jar holds for the API origin.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.base)
}

// SetCookies loads previously saved cookies for the API origin.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.base, cookies)
}

// ClearSession drops the bearer token and every stored cookie.
func (c *Client) ClearSession() {
	c.SetToken("")
	c.jar.reset()
}

// Observe registers fn for failed calls and returns a func that removes it.
func (c *Client) Observe(fn Observer) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// Get performs a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, QueryParams: query}, out)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Upload sends body as the multipart "body" part together with files.
func (c *Client) Upload(ctx context.Context, method, path string, body any, files []File, out any) error {
	return c.Do(ctx, Request{Method: method, Path: path, Body: body, Files: files, Multipart: true}, out)
}

// Do executes req. A non-nil out receives the decoded JSON response.
//
// Failures are returned as *Error, except context cancellation which is
// returned unchanged and not reported to observers.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	u, err := c.buildURL(req.Path, req.QueryParams)
	if err != nil {
		return fmt.Errorf("building URL: %w", err)
	}

	payload, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), payload)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if unsafeMethod(req.Method) {
		key := idempotencyKeyFrom(ctx)
		if key == "" {
			key = uuid.NewString()
		}
		httpReq.Header.Set(idempotencyKeyHeader, key)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("request failed", slog.String("method", req.Method), slog.String("path", req.Path), slog.Any("error", err))
		return c.fail(&Error{Kind: KindNetwork, Message: UnknownErrorMessage, Err: err})
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(c.decodeError(resp.StatusCode, raw))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == io.EOF {
			return nil
		}
		return c.fail(&Error{Status: resp.StatusCode, Kind: KindNetwork, Message: UnknownErrorMessage, Err: fmt.Errorf("decoding response: %w", err)})
	}
	return nil
}

func (c *Client) fail(e *Error) *Error {
	c.mu.RLock()
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.RUnlock()

	for _, fn := range observers {
		fn(e)
	}
	return e
}

func (c *Client) buildURL(path string, query map[string]string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.Multipart || len(req.Files) > 0 {
		return encodeMultipart(req.Body, req.Files)
	}
	if req.Body == nil {
		return nil, "", nil
	}
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request body: %w", err)
	}
	return bytes.NewReader(raw), "application/json", nil
}

func encodeMultipart(body any, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request body: %w", err)
		}
		if err := w.WriteField("body", string(raw)); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		part, err := w.CreatePart(fileHeader(f))
		if err != nil {
			return nil, "", fmt.Errorf("creating part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func unsafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

type idempotencyKey struct{}

// WithIdempotencyKey makes every unsafe request made with ctx carry key
// instead of a generated one, so a retried submission is replayed. Derive a
// fresh ctx per logical submission.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey{}).(string)
	return key
}
