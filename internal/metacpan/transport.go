package metacpan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"pkt.systems/pslog"
)

// Response is the raw outcome of a request that reached the backend.
type Response struct {
	// Method is the HTTP method of the request.
	Method string

	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the response body.
	Body []byte
}

// Transport performs requests against the backend. Implementations must
// be safe for concurrent use. A Transport returns an error only when no
// response was received; HTTP statuses are interpreted by the client.
type Transport interface {
	Get(ctx context.Context, path string, params map[string]any) (*Response, error)
	Post(ctx context.Context, path string, body []byte) (*Response, error)
}

// HTTPTransport is the default [Transport], backed by an [http.Client].
type HTTPTransport struct {
	baseURL   string
	http      *http.Client
	userAgent string
	logger    pslog.Base
}

// NewHTTPTransport returns a transport for baseURL. A nil client uses
// [http.DefaultClient]; a nil logger discards log output.
func NewHTTPTransport(baseURL string, client *http.Client, userAgent string, logger pslog.Base) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &HTTPTransport{
		baseURL:   baseURL,
		http:      client,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Get issues a GET request with params encoded by [EncodeParams].
func (t *HTTPTransport) Get(ctx context.Context, path string, params map[string]any) (*Response, error) {
	query, err := EncodeParams(params)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, URL: path, Err: err}
	}
	return t.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body.
func (t *HTTPTransport) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return t.do(ctx, http.MethodPost, path, "", body)
}

func (t *HTTPTransport) do(ctx context.Context, method, path, query string, body []byte) (*Response, error) {
	u, err := url.JoinPath(t.baseURL, path)
	if err != nil {
		return nil, &TransportError{Method: method, URL: path, Err: fmt.Errorf("invalid URL: %w", err)}
	}
	if query != "" {
		u += "?" + query
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: u, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.logger.Debug("metacpan.http.failed", "method", method, "url", u, "error", err)
		return nil, &TransportError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: u, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	t.logger.Debug("metacpan.http",
		"method", method,
		"url", u,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start).String(),
	)

	return &Response{Method: method, URL: u, StatusCode: resp.StatusCode, Body: data}, nil
}

// EncodeParams encodes GET parameters as key=value pairs joined by "&",
// with keys in lexicographic order. When any value is not a scalar, the
// whole parameter set is instead sent as JSON under a single "source" key.
func EncodeParams(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", nil
	}

	for _, v := range params {
		if !isScalar(v) {
			b, err := json.Marshal(params)
			if err != nil {
				return "", fmt.Errorf("failed to encode parameters: %w", err)
			}
			return "source=" + url.QueryEscape(string(b)), nil
		}
	}

	keys := slices.Sorted(maps.Keys(params))
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		s := ""
		if v != nil {
			s = fmt.Sprint(v)
		}
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(s))
	}
	return strings.Join(pairs, "&"), nil
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
