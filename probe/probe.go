// Package probe executes live HTTP requests against the API under
// verification and records the responses for comparison.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodySize caps recorded response bodies to prevent memory exhaustion.
const maxBodySize = 10 * 1024 * 1024 // 10MB

// ErrBodyNotJSON marks a recorded body that could not be decoded as JSON.
// Comparing such a body against a contract schema is a precondition
// violation for that single check.
var ErrBodyNotJSON = errors.New("response body is not valid JSON")

// Request describes one probe against the API. Path may contain {name}
// placeholders substituted from PathParams.
type Request struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      url.Values
	Headers    http.Header
	// Body is JSON-encoded into the request when non-nil.
	Body any
}

// Response is the immutable record of one probe. Body is decoded with
// json.Decoder.UseNumber so integer-valued and fractional numbers stay
// distinguishable downstream.
type Response struct {
	Status   int
	Headers  http.Header
	Raw      []byte
	Duration time.Duration

	body      any
	decodeErr error
}

// Body returns the decoded JSON body. It fails with ErrBodyNotJSON when
// the raw bytes did not decode; the raw body stays available either way.
func (r *Response) Body() (any, error) {
	if r.decodeErr != nil {
		return nil, r.decodeErr
	}
	return r.body, nil
}

// Executor issues probes against a single base URL. It performs no
// retries; transient failures surface to the caller.
type Executor struct {
	baseURL string
	client  *http.Client
	bearer  string
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.client = c }
}

// WithBearerToken attaches a bearer token to every probe.
func WithBearerToken(token string) Option {
	return func(e *Executor) { e.bearer = token }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates an Executor for the given API base URL.
func NewExecutor(baseURL string, opts ...Option) *Executor {
	e := &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do executes one probe and records the response. The request path is
// expanded from PathParams first; an unbound placeholder is an error.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	path, err := ExpandPath(req.Path, req.PathParams)
	if err != nil {
		return nil, err
	}
	target := e.baseURL + path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", req.Method, path, err)
	}
	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if e.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.bearer)
	}

	start := time.Now()
	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("probing %s %s: %w", req.Method, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s %s: %w", req.Method, path, err)
	}

	resp := &Response{
		Status:   httpResp.StatusCode,
		Headers:  httpResp.Header.Clone(),
		Raw:      raw,
		Duration: time.Since(start),
	}
	resp.body, resp.decodeErr = decodeBody(raw)

	e.logger.Debug("probe complete",
		"method", req.Method,
		"path", path,
		"status", resp.Status,
		"bytes", len(raw),
		"duration", resp.Duration)

	return resp, nil
}

// decodeBody parses the raw body as JSON with UseNumber. An empty body
// decodes to nil without error; anything else that fails to parse is
// reported as ErrBodyNotJSON.
func decodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyNotJSON, err)
	}
	return v, nil
}

// ExpandPath substitutes {name} placeholders with escaped parameter
// values.
func ExpandPath(path string, params map[string]string) (string, error) {
	var b strings.Builder
	rest := path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder in path %q", path)
		}
		name := rest[open+1 : open+closing]
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("path %q: no value for parameter %q", path, name)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+closing+1:]
	}
}
