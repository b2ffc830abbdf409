package metacpan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jparise/mcpan/internal/searchspec"
)

// reverseDependencyPageSize is large enough that most modules resolve in
// a single request.
const reverseDependencyPageSize = 1000

var reverseDependencyFields = []string{
	"name",
	"distribution",
	"author",
	"version",
	"abstract",
	"date",
	"status",
}

// ReverseDependencySpec returns the release search matching the latest
// releases that declare a runtime requirement on module.
func ReverseDependencySpec(module string) searchspec.Spec {
	return searchspec.All(
		searchspec.Match("dependency.module", module),
		searchspec.Match("dependency.relationship", "requires"),
		searchspec.Match("dependency.phase", "runtime"),
		searchspec.Match("status", "latest"),
	)
}

// ReverseDependencies returns the distributions whose latest release
// requires module at runtime. A module given in distribution form
// ("Foo-Bar") is treated as "Foo::Bar".
//
// The result is fully materialized. Distributions appear in the order of
// their first matching release, and when several releases of the same
// distribution match, only the most recent one is kept.
func (c *Client) ReverseDependencies(ctx context.Context, module string) ([]*Record, error) {
	module = strings.ReplaceAll(strings.TrimSpace(module), "-", "::")
	if module == "" {
		return nil, fmt.Errorf("%w: empty module name", ErrInvalidSpecShape)
	}

	rs, err := c.Search(KindRelease, ReverseDependencySpec(module), &SearchOptions{
		Fields:   reverseDependencyFields,
		PageSize: reverseDependencyPageSize,
	})
	if err != nil {
		return nil, err
	}

	var order []string
	latest := make(map[string]*Release)
	for rec, err := range rs.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reverse dependencies of %s: %w", module, err)
		}
		rel := rec.Release()
		if rel == nil || rel.Distribution == "" {
			return nil, &DecodeError{Kind: KindRelease, Err: fmt.Errorf(`release %s: missing required field "distribution"`, rec.ID)}
		}
		prev, ok := latest[rel.Distribution]
		if !ok {
			order = append(order, rel.Distribution)
			latest[rel.Distribution] = rel
			continue
		}
		if newerRelease(rel, prev) {
			latest[rel.Distribution] = rel
		}
	}

	info, err := Describe(KindDistribution)
	if err != nil {
		return nil, err
	}
	dists := make([]*Record, 0, len(order))
	for _, name := range order {
		rel := latest[name]
		source, err := json.Marshal(Distribution{
			Name:     rel.Distribution,
			Release:  rel.Name,
			Version:  rel.Version,
			Author:   rel.Author,
			Abstract: rel.Abstract,
			Date:     rel.Date,
		})
		if err != nil {
			return nil, &DecodeError{Kind: KindDistribution, Err: err}
		}
		rec, err := newRecord(info, source, name)
		if err != nil {
			return nil, err
		}
		dists = append(dists, rec)
	}
	return dists, nil
}

// newerRelease reports whether a was uploaded after b. Unparseable dates
// fall back to string comparison, which orders the backend's format
// correctly.
func newerRelease(a, b *Release) bool {
	at, aerr := a.Date.Time()
	bt, berr := b.Date.Time()
	if aerr != nil || berr != nil {
		return a.Date > b.Date
	}
	return at.After(bt)
}
