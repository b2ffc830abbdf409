package metacpan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/jparise/mcpan/internal/searchspec"
	"pkt.systems/pslog"
)

// Sort orders search hits by a field.
type Sort struct {
	Field      string
	Descending bool
}

// MarshalJSON encodes the sort clause as {"field":{"order":"asc|desc"}}.
func (s Sort) MarshalJSON() ([]byte, error) {
	order := "asc"
	if s.Descending {
		order = "desc"
	}
	return json.Marshal(map[string]map[string]string{s.Field: {"order": order}})
}

// SearchOptions tunes a result set.
type SearchOptions struct {
	// Fields restricts the returned source fields. Empty returns the
	// full documents.
	Fields []string

	// Sort orders the hits. Empty keeps the backend's relevance order.
	Sort []Sort

	// PageSize is the number of hits fetched per request. Zero uses the
	// client's page size.
	PageSize int

	// Limit caps the number of records the set yields. Zero means no cap.
	Limit int
}

type setState int

const (
	setCreated setState = iota
	setPaging
	setExhausted
)

func (s setState) String() string {
	switch s {
	case setCreated:
		return "created"
	case setPaging:
		return "paging"
	case setExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("setState(%d)", int(s))
	}
}

// ResultSet is a forward-only, lazily paginated sequence of records
// matching a compiled query.
//
// The first call to [ResultSet.Total] or [ResultSet.Next] fetches the
// first page. Later pages are fetched as the buffer drains, in increasing
// offset order, with a page size that stays fixed for the set's lifetime.
// Once every hit has been fetched the set is exhausted and makes no
// further requests. Records are yielded in backend order.
//
// Pagination is stateless, so an abandoned set needs no cleanup. To
// iterate again, build a new set from the same query.
type ResultSet struct {
	transport Transport
	logger    pslog.Base
	info      KindInfo
	query     searchspec.Query
	fields    []string
	sort      []Sort
	pageSize  int
	limit     int

	mu      sync.Mutex
	state   setState
	offset  int
	total   int
	buf     []*Record
	pos     int
	yielded int
	cur     *Record
	err     error
}

func (c *Client) newResultSet(info KindInfo, query searchspec.Query, opts *SearchOptions) (*ResultSet, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("invalid page size %d", opts.PageSize)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("invalid limit %d", opts.Limit)
	}
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = c.pageSize
	}
	return &ResultSet{
		transport: c.transport,
		logger:    c.logger,
		info:      info,
		query:     query,
		fields:    opts.Fields,
		sort:      opts.Sort,
		pageSize:  pageSize,
		limit:     opts.Limit,
	}, nil
}

// Kind returns the entity kind of the set's records.
func (rs *ResultSet) Kind() Kind {
	return rs.info.Kind
}

// Query returns the compiled query behind the set.
func (rs *ResultSet) Query() searchspec.Query {
	return rs.query
}

// PageSize returns the number of hits requested per page.
func (rs *ResultSet) PageSize() int {
	return rs.pageSize
}

// Total returns the number of records the set will yield, fetching the
// first page if needed. The total is fixed when the first page arrives
// and is capped by SearchOptions.Limit.
func (rs *ResultSet) Total(ctx context.Context) (int, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.state == setCreated {
		if err := rs.fetch(ctx); err != nil {
			return 0, err
		}
	}
	return rs.total, nil
}

// Next advances to the next record, fetching a page when the buffer is
// empty. It returns false when the set is exhausted or a fetch failed;
// check [ResultSet.Err] to tell them apart.
func (rs *ResultSet) Next(ctx context.Context) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.cur = nil
	if rs.err != nil {
		return false
	}
	for rs.pos >= len(rs.buf) {
		if rs.state == setExhausted {
			return false
		}
		if err := rs.fetch(ctx); err != nil {
			rs.err = err
			return false
		}
	}
	rs.cur = rs.buf[rs.pos]
	rs.pos++
	rs.yielded++
	return true
}

// Record returns the record at the current position, or nil before the
// first call to Next or after Next returned false.
func (rs *ResultSet) Record() *Record {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.cur
}

// Err returns the error that stopped iteration, if any.
func (rs *ResultSet) Err() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.err
}

// Yielded returns the number of records returned by Next so far.
func (rs *ResultSet) Yielded() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.yielded
}

// All returns an iterator over the remaining records. Iteration stops
// after yielding a non-nil error.
func (rs *ResultSet) All(ctx context.Context) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for rs.Next(ctx) {
			if !yield(rs.Record(), nil) {
				return
			}
		}
		if err := rs.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Collect reads the remaining records into a slice.
func (rs *ResultSet) Collect(ctx context.Context) ([]*Record, error) {
	var records []*Record
	for rec, err := range rs.All(ctx) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

type searchRequest struct {
	Query  searchspec.Query `json:"query"`
	Size   int              `json:"size"`
	From   int              `json:"from"`
	Source []string         `json:"_source,omitempty"`
	Sort   []Sort           `json:"sort,omitempty"`
}

type searchResponse struct {
	Hits *struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// fetch requests the page at the current offset. Every page asks for the
// full page size; hits past the total (or the limit) are dropped here. The
// caller holds rs.mu. A failed fetch leaves the cursor unchanged.
func (rs *ResultSet) fetch(ctx context.Context) error {
	body, err := json.Marshal(searchRequest{
		Query:  rs.query,
		Size:   rs.pageSize,
		From:   rs.offset,
		Source: rs.fields,
		Sort:   rs.sort,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s search: %w", rs.info.Kind, err)
	}

	resp, err := rs.transport.Post(ctx, rs.info.SearchPath(), body)
	data, err := checkResponse(rs.info.Kind, "", resp, err)
	if err != nil {
		return err
	}

	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return &DecodeError{Kind: rs.info.Kind, Err: err}
	}
	if sr.Hits == nil {
		return &DecodeError{Kind: rs.info.Kind, Err: errors.New(`missing required field "hits"`)}
	}

	records := make([]*Record, 0, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		rec, err := newRecord(rs.info, hit.Source, hit.ID)
		if err != nil {
			return fmt.Errorf("hit %d at offset %d: %w", i, rs.offset, err)
		}
		records = append(records, rec)
	}

	if rs.state == setCreated {
		total, err := parseTotal(sr.Hits.Total)
		if err != nil {
			return &DecodeError{Kind: rs.info.Kind, Err: err}
		}
		if rs.limit > 0 {
			total = min(total, rs.limit)
		}
		rs.total = total
		rs.state = setPaging
	}

	if remaining := rs.total - rs.offset; len(records) > remaining {
		records = records[:max(remaining, 0)]
	}

	rs.logger.Debug("metacpan.search.page",
		"kind", string(rs.info.Kind),
		"offset", rs.offset,
		"size", rs.pageSize,
		"hits", len(records),
		"total", rs.total,
	)

	rs.buf = records
	rs.pos = 0
	rs.offset += len(records)
	if rs.offset >= rs.total || len(records) == 0 {
		rs.state = setExhausted
	}
	return nil
}

// parseTotal accepts both the integer and the {"value": n} forms of
// hits.total.
func parseTotal(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New(`missing required field "hits.total"`)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Value *int `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Value == nil {
		return 0, fmt.Errorf("invalid hits.total %s", raw)
	}
	return *obj.Value, nil
}
