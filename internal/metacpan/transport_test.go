package metacpan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"gopkg.in/h2non/gock.v1"
)

func TestEncodeParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name:   "single",
			params: map[string]any{"version": "1.0"},
			want:   "version=1.0",
		},
		{
			name:   "keys are sorted",
			params: map[string]any{"size": 10, "fields": "name", "author": "DROLSKY"},
			want:   "author=DROLSKY&fields=name&size=10",
		},
		{
			name:   "values are escaped",
			params: map[string]any{"version": ">1.0,<2.0", "q": "a b&c"},
			want:   "q=a+b%26c&version=%3E1.0%2C%3C2.0",
		},
		{
			name:   "scalars of other types",
			params: map[string]any{"flag": true, "ratio": 0.5, "none": nil},
			want:   "flag=true&none=&ratio=0.5",
		},
		{
			name:   "nested value sends JSON source",
			params: map[string]any{"size": 1, "query": map[string]any{"match_all": map[string]any{}}},
			want:   "source=%7B%22query%22%3A%7B%22match_all%22%3A%7B%7D%7D%2C%22size%22%3A1%7D",
		},
		{
			name:   "list value sends JSON source",
			params: map[string]any{"fields": []string{"name", "date"}},
			want:   "source=%7B%22fields%22%3A%5B%22name%22%2C%22date%22%5D%7D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeParams(tt.params)
			if err != nil {
				t.Fatalf("EncodeParams() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeParams() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeParams_Unencodable(t *testing.T) {
	_, err := EncodeParams(map[string]any{"bad": map[string]any{"ch": make(chan int)}})
	if err == nil {
		t.Error("expected error for unencodable value")
	}
}

func TestHTTPTransport_Post(t *testing.T) {
	assertMocksCalled(t)

	gock.New(testHost).
		Post("/v1/release/_search").
		MatchHeader("Accept", "application/json").
		MatchHeader("Content-Type", "application/json").
		MatchHeader("User-Agent", "^test-agent$").
		BodyString(`{"size":1}`).
		Reply(201).
		BodyString(`created`)

	tr := NewHTTPTransport(DefaultBaseURL, nil, "test-agent", nil)
	resp, err := tr.Post(context.Background(), "release/_search", []byte(`{"size":1}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if resp.StatusCode != 201 || string(resp.Body) != "created" {
		t.Errorf("Post() = %d %q", resp.StatusCode, resp.Body)
	}
	if resp.Method != http.MethodPost || resp.URL != DefaultBaseURL+"/release/_search" {
		t.Errorf("Post() recorded %s %s", resp.Method, resp.URL)
	}
}

func TestHTTPTransport_GetStatusIsNotAnError(t *testing.T) {
	assertMocksCalled(t)

	gock.New(testHost).
		Get("/v1/author/NOBODY").
		Reply(404).
		BodyString(`{"message":"Not found"}`)

	tr := NewHTTPTransport(DefaultBaseURL, nil, DefaultUserAgent, nil)
	resp, err := tr.Get(context.Background(), "author/NOBODY", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingBody) Close() error             { return nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestHTTPTransport_ReadFailure(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(failingBody{}), Request: req}, nil
	})}

	tr := NewHTTPTransport(DefaultBaseURL, client, DefaultUserAgent, nil)
	_, err := tr.Get(context.Background(), "author/X", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Get() error = %v, want TransportError", err)
	}
	if te.Method != http.MethodGet || te.URL != DefaultBaseURL+"/author/X" {
		t.Errorf("TransportError = %+v", te)
	}
}
