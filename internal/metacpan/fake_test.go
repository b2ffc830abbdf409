package metacpan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeCall records one request made through fakeTransport.
type fakeCall struct {
	Method string
	Path   string
	Params map[string]any
	Body   map[string]any
}

// fakeTransport replays canned responses in order and records every call.
type fakeTransport struct {
	mu        sync.Mutex
	calls     []fakeCall
	responses []*Response
	err       error
}

func (f *fakeTransport) reply(status int, body string) *fakeTransport {
	f.responses = append(f.responses, &Response{StatusCode: status, Body: []byte(body)})
	return f
}

func (f *fakeTransport) next(method, path string) (*Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("unexpected %s %s", method, path)
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	resp.Method = method
	resp.URL = "https://fake.test/" + path
	return resp, nil
}

func (f *fakeTransport) Get(_ context.Context, path string, params map[string]any) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{Method: "GET", Path: path, Params: params})
	return f.next("GET", path)
}

func (f *fakeTransport) Post(_ context.Context, path string, body []byte) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var decoded map[string]any
	_ = json.Unmarshal(body, &decoded)
	f.calls = append(f.calls, fakeCall{Method: "POST", Path: path, Body: decoded})
	return f.next("POST", path)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newFakeClient(t *testing.T, ft *fakeTransport, pageSize int) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{Transport: ft, PageSize: pageSize})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// hitsPage builds a search response with the given total and sources.
func hitsPage(total int, sources ...string) string {
	hits := make([]string, len(sources))
	for i, src := range sources {
		hits[i] = fmt.Sprintf(`{"_id":"id%d","_source":%s}`, i, src)
	}
	return fmt.Sprintf(`{"hits":{"total":%d,"hits":[%s]}}`, total, strings.Join(hits, ","))
}

// authorSources generates n author documents starting at start.
func authorSources(start, n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = fmt.Sprintf(`{"pauseid":"AUTHOR%d","name":"Author %d"}`, start+i, start+i)
	}
	return out
}
