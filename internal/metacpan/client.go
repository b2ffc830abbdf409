package metacpan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jparise/mcpan/internal/searchspec"
	"pkt.systems/pslog"
)

const (
	// DefaultBaseURL is the public MetaCPAN API root.
	DefaultBaseURL = "https://fastapi.metacpan.org/v1"

	// DefaultUserAgent is sent when ClientOptions.UserAgent is empty.
	DefaultUserAgent = "mcpan/1.0"

	// DefaultPageSize is the number of hits requested per result set page.
	DefaultPageSize = 100
)

// ClientOptions configures the MetaCPAN client. Options are read once by
// [NewClient]; the client does not observe later changes.
type ClientOptions struct {
	// BaseURL is the API root. Default: [DefaultBaseURL].
	BaseURL string

	// UserAgent is sent with every request. Default: [DefaultUserAgent].
	UserAgent string

	// HTTPClient is used by the default transport. Default: [http.DefaultClient].
	HTTPClient *http.Client

	// Transport replaces the default HTTP transport. When set, BaseURL,
	// UserAgent and HTTPClient are ignored.
	Transport Transport

	// PageSize is the default result set page size. Default: [DefaultPageSize].
	PageSize int

	// Logger receives debug events. Default: no logging.
	Logger pslog.Base
}

// Client is a MetaCPAN client.
//
// Client is safe for concurrent use. Each result set it returns keeps its
// own cursor and is meant to be consumed by one goroutine at a time.
type Client struct {
	transport Transport
	pageSize  int
	logger    pslog.Base
}

// NewClient creates a new MetaCPAN client with the given options.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("invalid page size %d", opts.PageSize)
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = pslog.NoopLogger()
	}

	transport := opts.Transport
	if transport == nil {
		if opts.BaseURL == "" {
			opts.BaseURL = DefaultBaseURL
		}
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", opts.BaseURL)
		}
		if opts.UserAgent == "" {
			opts.UserAgent = DefaultUserAgent
		}
		transport = NewHTTPTransport(opts.BaseURL, opts.HTTPClient, opts.UserAgent, opts.Logger)
	}

	return &Client{
		transport: transport,
		pageSize:  opts.PageSize,
		logger:    opts.Logger,
	}, nil
}

// Result is the outcome of [Client.Lookup]: exactly one of Record and
// Set is non-nil.
type Result struct {
	Record *Record
	Set    *ResultSet
}

// IsSet reports whether the lookup produced a result set.
func (r *Result) IsSet() bool {
	return r != nil && r.Set != nil
}

// Lookup fetches a single record or prepares a search, depending on arg.
//
// A string arg is an identifier: the record is fetched immediately with
// one request. A [searchspec.Spec] or a map[string]any spec mapping is
// compiled and returned as a lazy [ResultSet]; no request is made until
// the set is advanced or its total is queried.
func (c *Client) Lookup(ctx context.Context, kind Kind, arg any) (*Result, error) {
	if _, err := Describe(kind); err != nil {
		return nil, err
	}

	switch arg := arg.(type) {
	case string:
		rec, err := c.Get(ctx, kind, arg)
		if err != nil {
			return nil, err
		}
		return &Result{Record: rec}, nil
	case searchspec.Spec:
		rs, err := c.Search(kind, arg, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Set: rs}, nil
	case map[string]any:
		spec, err := searchspec.Parse(arg)
		if err != nil {
			return nil, err
		}
		rs, err := c.Search(kind, spec, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Set: rs}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported lookup argument of type %T", ErrInvalidSpecShape, arg)
	}
}

// Author looks up authors by PAUSE ID or search spec.
func (c *Client) Author(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindAuthor, arg)
}

// Module looks up modules by name or search spec.
func (c *Client) Module(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindModule, arg)
}

// Distribution looks up distributions by name or search spec.
func (c *Client) Distribution(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindDistribution, arg)
}

// Release looks up releases by distribution name or search spec.
// An identifier fetches the latest release of that distribution.
func (c *Client) Release(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindRelease, arg)
}

// File looks up files by ID or search spec.
func (c *Client) File(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindFile, arg)
}

// Favorite looks up favorites by ID or search spec.
func (c *Client) Favorite(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindFavorite, arg)
}

// Rating looks up ratings by ID or search spec.
func (c *Client) Rating(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindRating, arg)
}

// Pod always returns [ErrNotImplemented].
func (c *Client) Pod(ctx context.Context, arg any) (*Result, error) {
	return c.Lookup(ctx, KindPod, arg)
}

// Get fetches a single record by identifier.
//
// Returns [ErrNotFound] if the backend has no such record.
func (c *Client) Get(ctx context.Context, kind Kind, id string) (*Record, error) {
	info, err := Describe(kind)
	if err != nil {
		return nil, err
	}
	p, err := resourcePath(info.Endpoint, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s identifier: %w", ErrInvalidSpecShape, kind, err)
	}

	resp, err := c.transport.Get(ctx, p, nil)
	body, err := checkResponse(kind, id, resp, err)
	if err != nil {
		return nil, err
	}
	return newRecord(info, body, id)
}

// Exists reports whether a record with the given identifier exists.
func (c *Client) Exists(ctx context.Context, kind Kind, id string) (bool, error) {
	_, err := c.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Search compiles spec and returns a lazy result set over kind. No
// request is made until the set is advanced or its total is queried.
// A nil opts uses the client defaults.
func (c *Client) Search(kind Kind, spec searchspec.Spec, opts *SearchOptions) (*ResultSet, error) {
	info, err := Describe(kind)
	if err != nil {
		return nil, err
	}
	query, err := searchspec.Compile(spec)
	if err != nil {
		return nil, err
	}
	return c.newResultSet(info, query, opts)
}

// All returns a lazy result set over every record of kind.
func (c *Client) All(kind Kind, opts *SearchOptions) (*ResultSet, error) {
	info, err := Describe(kind)
	if err != nil {
		return nil, err
	}
	return c.newResultSet(info, searchspec.MatchAllQuery(), opts)
}

// Recent returns the n most recently uploaded releases, newest first.
func (c *Client) Recent(ctx context.Context, n int) ([]*Record, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid release count %d", n)
	}
	rs, err := c.All(KindRelease, &SearchOptions{
		Sort:     []Sort{{Field: "date", Descending: true}},
		PageSize: min(n, c.pageSize),
		Limit:    n,
	})
	if err != nil {
		return nil, err
	}
	return rs.Collect(ctx)
}

// DownloadInfo describes where to download a module's release.
type DownloadInfo struct {
	DownloadURL    string    `json:"download_url"`
	Release        string    `json:"release"`
	Version        Version   `json:"version"`
	Status         string    `json:"status"`
	Date           Timestamp `json:"date"`
	ChecksumSHA256 string    `json:"checksum_sha256,omitempty"`
}

// DownloadURL resolves the download URL of the release providing module.
// An empty version selects the latest release; otherwise version is a
// version or range such as ">1.0,<2.0".
func (c *Client) DownloadURL(ctx context.Context, module, version string) (*DownloadInfo, error) {
	p, err := resourcePath("download_url", module)
	if err != nil {
		return nil, fmt.Errorf("%w: module name: %w", ErrInvalidSpecShape, err)
	}
	var params map[string]any
	if version != "" {
		params = map[string]any{"version": version}
	}

	resp, err := c.transport.Get(ctx, p, params)
	body, err := checkResponse(KindModule, module, resp, err)
	if err != nil {
		return nil, err
	}

	var info DownloadInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &DecodeError{Kind: KindModule, Err: err}
	}
	if info.DownloadURL == "" {
		return nil, &DecodeError{Kind: KindModule, Err: errors.New(`missing required field "download_url"`)}
	}
	return &info, nil
}

// resourcePath appends id to endpoint. Identifiers may span several
// segments (releases are addressed as "AUTHOR/Name-1.0"), but every segment
// must be non-empty and neither "." nor "..", so an identifier can never
// leave its endpoint.
func resourcePath(endpoint, id string) (string, error) {
	if id == "" {
		return "", errors.New("empty identifier")
	}
	for seg := range strings.SplitSeq(id, "/") {
		switch seg {
		case "":
			return "", fmt.Errorf("identifier %q has an empty path segment", id)
		case ".", "..":
			return "", fmt.Errorf("identifier %q has a relative path segment", id)
		}
	}
	return endpoint + "/" + id, nil
}

// checkResponse maps a transport outcome onto the client error taxonomy
// and returns the body of a successful response.
func checkResponse(kind Kind, id string, resp *Response, err error) ([]byte, error) {
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &TransportError{Err: err}
	}
	if resp == nil {
		return nil, &TransportError{Err: errors.New("no response")}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Kind: kind, ID: id, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &TransportError{Method: resp.Method, URL: resp.URL, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}
