package searchspec

import (
	"encoding/json"
	"strings"
)

// ClauseType selects how a leaf clause matches its value.
type ClauseType string

const (
	// ClauseTerm matches the value exactly.
	ClauseTerm ClauseType = "term"
	// ClauseWildcard matches the value as a pattern where * spans any run
	// of characters.
	ClauseWildcard ClauseType = "wildcard"
)

// Clause is a leaf match of a compiled query.
type Clause struct {
	Type  ClauseType
	Field string
	Value string
}

// BoolQuery groups compiled queries. Should requires at least one match,
// Must requires all of them and MustNot excludes any match.
type BoolQuery struct {
	Must               []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch int
}

// Query is a compiled, backend-facing query. Exactly one of Bool, Clause
// or MatchAll is set.
type Query struct {
	Bool     *BoolQuery
	Clause   *Clause
	MatchAll bool
}

// MatchAllQuery returns a query matching every document.
func MatchAllQuery() Query {
	return Query{MatchAll: true}
}

// Compile translates a spec into a backend bool query.
//
// Compile is deterministic: the same spec always marshals to the same bytes.
func Compile(s Spec) (Query, error) {
	if err := s.Err(); err != nil {
		return Query{}, err
	}
	return compile(s), nil
}

func compile(s Spec) Query {
	switch s.mode {
	case modeEither:
		return Query{Bool: &BoolQuery{
			Should:             compileList(s.children),
			MustNot:            compileList(s.not),
			MinimumShouldMatch: 1,
		}}
	case modeAll:
		return Query{Bool: &BoolQuery{
			Must:    compileList(s.children),
			MustNot: compileList(s.not),
		}}
	}

	if len(s.fields) == 1 {
		return leaf(s.fields[0])
	}
	must := make([]Query, 0, len(s.fields))
	for _, f := range s.fields {
		must = append(must, leaf(f))
	}
	return Query{Bool: &BoolQuery{Must: must}}
}

func compileList(specs []Spec) []Query {
	if len(specs) == 0 {
		return nil
	}
	out := make([]Query, 0, len(specs))
	for _, s := range specs {
		out = append(out, compile(s))
	}
	return out
}

func leaf(f Field) Query {
	t := ClauseTerm
	if IsWildcard(f.Value) {
		t = ClauseWildcard
	}
	return Query{Clause: &Clause{Type: t, Field: f.Name, Value: f.Value}}
}

// IsWildcard reports whether a match value is a wildcard pattern.
func IsWildcard(value string) bool {
	return strings.Contains(value, "*")
}

// MarshalJSON encodes the query in the backend's query DSL.
func (q Query) MarshalJSON() ([]byte, error) {
	switch {
	case q.Clause != nil:
		return json.Marshal(map[string]any{
			string(q.Clause.Type): map[string]string{q.Clause.Field: q.Clause.Value},
		})
	case q.Bool != nil:
		b := make(map[string]any, 4)
		if len(q.Bool.Must) > 0 {
			b["must"] = q.Bool.Must
		}
		if len(q.Bool.Should) > 0 {
			b["should"] = q.Bool.Should
		}
		if len(q.Bool.MustNot) > 0 {
			b["must_not"] = q.Bool.MustNot
		}
		if q.Bool.MinimumShouldMatch > 0 {
			b["minimum_should_match"] = q.Bool.MinimumShouldMatch
		}
		return json.Marshal(map[string]any{"bool": b})
	default:
		return []byte(`{"match_all":{}}`), nil
	}
}
