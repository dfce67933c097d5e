package simdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 8 << 20

// HTTPClient talks to a similarity backend over HTTP. It implements
// Analyzer and HealthChecker.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

type ClientOption func(*HTTPClient)

// WithHTTPTimeout bounds every request, including the upload.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithRateLimit spaces requests at least every apart.
func WithRateLimit(every time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if every <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		client:  &http.Client{Timeout: 2 * time.Minute},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeResponse struct {
	Status  string                       `json:"status"`
	Results []map[string]json.RawMessage `json:"results"`
	Message string                       `json:"message"`
	Error   string                       `json:"error"`
}

// Analyze uploads file under the profile's form field and decodes the
// ranked results in server order.
func (c *HTTPClient) Analyze(ctx context.Context, profile Profile, file SelectedFile) ([]AnalysisResult, error) {
	if err := waitTurn(ctx, c.limiter); err != nil {
		return nil, err
	}

	body, contentType, length, err := multipartBody(profile.FormField, file)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.EndpointURL(), body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.ContentLength = length

	respBody, status, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp analyzeResponse
	decodeErr := json.Unmarshal(respBody, &resp)

	if status < 200 || status > 299 {
		serr := &ServerError{StatusCode: status}
		if decodeErr == nil {
			serr.Message = firstNonEmpty(resp.Error, resp.Message)
		}
		return nil, serr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if resp.Status != "ok" {
		return nil, &ServerError{StatusCode: status, Message: firstNonEmpty(resp.Message, resp.Error, "unexpected status "+strconv.Quote(resp.Status))}
	}

	results := make([]AnalysisResult, 0, len(resp.Results))
	for i, raw := range resp.Results {
		r, err := decodeResult(profile, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: result %d: %v", ErrMalformedResponse, i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// Health probes GET /api/health.
func (c *HTTPClient) Health(ctx context.Context, baseURL string) error {
	return c.probe(ctx, strings.TrimRight(baseURL, "/")+"/api/health")
}

// TestDB probes GET /api/test-db.
func (c *HTTPClient) TestDB(ctx context.Context, baseURL string) error {
	return c.probe(ctx, strings.TrimRight(baseURL, "/")+"/api/test-db")
}

func (c *HTTPClient) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(ctx, req)
	if err != nil {
		return err
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	decodeErr := json.Unmarshal(body, &resp)
	if status < 200 || status > 299 {
		serr := &ServerError{StatusCode: status}
		if decodeErr == nil {
			serr.Message = firstNonEmpty(resp.Error, resp.Message)
		}
		return serr
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	switch strings.ToLower(resp.Status) {
	case "ok", "healthy":
		return nil
	}
	return &ServerError{StatusCode: status, Message: firstNonEmpty(resp.Error, resp.Message, "status "+strconv.Quote(resp.Status))}
}

// do sends req and reads a bounded response body. Transport failures are
// classified as ErrUnreachable unless ctx ended first.
// waitTurn blocks on the limiter. A wait that would outlast ctx's deadline
// fails early inside rate; it is reported as context.DeadlineExceeded.
func waitTurn(ctx context.Context, l *rate.Limiter) error {
	err := l.Wait(ctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("rate limiter: %w", ctx.Err())
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("rate limiter: %w (%v)", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("rate limiter: %w", err)
}

func (c *HTTPClient) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

type fileBody struct {
	io.Reader
	io.Closer
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody frames the file as a single-part form without buffering it,
// so the request carries an exact Content-Length.
func multipartBody(field string, file SelectedFile) (io.ReadCloser, string, int64, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", 0, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(file.Name)))
	contentType := file.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	if _, err := mw.CreatePart(h); err != nil {
		f.Close()
		return nil, "", 0, fmt.Errorf("create form part: %w", err)
	}
	head := bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := mw.Close(); err != nil {
		f.Close()
		return nil, "", 0, fmt.Errorf("close form: %w", err)
	}
	tail := bytes.Clone(buf.Bytes())

	length := int64(len(head)) + info.Size() + int64(len(tail))
	body := fileBody{
		Reader: io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail)),
		Closer: f,
	}
	return body, mw.FormDataContentType(), length, nil
}

func decodeResult(profile Profile, raw map[string]json.RawMessage) (AnalysisResult, error) {
	fields := profile.Fields

	r := AnalysisResult{
		ID:       rawString(raw[fields.ID]),
		Title:    rawString(raw[fields.Title]),
		MediaRef: profile.ResolveMedia(rawString(raw[fields.Media])),
	}
	if fields.Subtitle != "" {
		r.Subtitle = rawString(raw[fields.Subtitle])
	}

	sim, err := rawFloat(raw[fields.Similarity])
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("%s: %w", fields.Similarity, err)
	}
	r.Similarity = sim
	return r, nil
}

// rawString accepts JSON strings and numbers.
func rawString(v json.RawMessage) string {
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawFloat(v json.RawMessage) (float64, error) {
	if len(v) == 0 || string(v) == "null" {
		return 0, errors.New("missing")
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", v)
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
