// Package lookup runs MetaCPAN queries on behalf of the command line and
// prints their results.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jparise/mcpan/internal/metacpan"
	"github.com/jparise/mcpan/internal/output"
	"github.com/jparise/mcpan/internal/searchspec"
	"golang.org/x/sync/semaphore"
)

// Runner executes lookups and writes their results.
type Runner struct {
	output *output.Output
	client *metacpan.Client
}

// New creates a new Runner.
func New(client *metacpan.Client, out *output.Output) *Runner {
	return &Runner{
		output: out,
		client: client,
	}
}

// Get fetches each identifier of kind and prints the records in input
// order. Failed lookups are reported as warnings; Get fails only when every
// lookup failed.
func (r *Runner) Get(ctx context.Context, kind metacpan.Kind, ids []string, opts *Options) error {
	if _, err := metacpan.Describe(kind); err != nil {
		return err
	}

	// Repeated identifiers are fetched once while preserving input order.
	seen := make(map[string]bool)
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return fmt.Errorf("at least one %s identifier is required", kind)
	}

	var wg sync.WaitGroup
	var errorCount atomic.Int32
	results := make([]*metacpan.Record, len(unique))
	sem := semaphore.NewWeighted(int64(max(opts.Jobs, 1)))

	for i, id := range unique {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}

		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer sem.Release(1)

			rec, err := r.client.Get(ctx, kind, id)
			if err != nil {
				errorCount.Add(1)
				r.output.Warningf("%s %s: %v", kind, id, err)
				return
			}
			results[i] = rec
		}(i, id)
	}

	wg.Wait()

	records := make([]*metacpan.Record, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, rec)
		}
	}
	if err := r.print(kind, records, opts); err != nil {
		return err
	}

	if int(errorCount.Load()) == len(unique) {
		return fmt.Errorf("failed to fetch all %d %s records", len(unique), kind)
	}
	return nil
}

// Search prints the records of kind matching spec.
func (r *Runner) Search(ctx context.Context, kind metacpan.Kind, spec searchspec.Spec, opts *Options) error {
	rs, err := r.client.Search(kind, spec, &opts.Search)
	if err != nil {
		return err
	}
	return r.list(ctx, rs, opts)
}

// All prints every record of kind.
func (r *Runner) All(ctx context.Context, kind metacpan.Kind, opts *Options) error {
	rs, err := r.client.All(kind, &opts.Search)
	if err != nil {
		return err
	}
	return r.list(ctx, rs, opts)
}

// Recent prints the n most recently uploaded releases.
func (r *Runner) Recent(ctx context.Context, n int, opts *Options) error {
	releases, err := r.client.Recent(ctx, n)
	if err != nil {
		return err
	}
	releases, err = r.filter(releases, opts)
	if err != nil {
		return err
	}
	return r.print(metacpan.KindRelease, releases, opts)
}

// ReverseDependencies prints the distributions whose latest release
// requires module at runtime.
func (r *Runner) ReverseDependencies(ctx context.Context, module string, opts *Options) error {
	dists, err := r.client.ReverseDependencies(ctx, module)
	if err != nil {
		return err
	}

	dists, err = r.filter(dists, opts)
	if err != nil {
		return err
	}
	if len(dists) == 0 && !opts.CountOnly {
		r.output.Warningf("No distributions depend on %s", module)
		return nil
	}
	return r.print(metacpan.KindDistribution, dists, opts)
}

// DownloadURL prints the download URL of the release providing module.
func (r *Runner) DownloadURL(ctx context.Context, module, version string) error {
	info, err := r.client.DownloadURL(ctx, module, version)
	if err != nil {
		return err
	}
	r.output.Line(info.DownloadURL)
	return nil
}

// list drains a result set. With CountOnly and no client-side filters
// only the total is fetched.
func (r *Runner) list(ctx context.Context, rs *metacpan.ResultSet, opts *Options) error {
	if opts.CountOnly && !filtering(opts) {
		total, err := rs.Total(ctx)
		if err != nil {
			return err
		}
		r.output.Count(rs.Kind(), total)
		return nil
	}

	var matched []*metacpan.Record
	for rec, err := range rs.All(ctx) {
		if err != nil {
			return err
		}
		kept, err := r.filter([]*metacpan.Record{rec}, opts)
		if err != nil {
			return err
		}
		if opts.CountOnly {
			matched = append(matched, kept...)
			continue
		}
		if err := r.print(rs.Kind(), kept, opts); err != nil {
			return err
		}
	}

	if opts.CountOnly {
		r.output.Count(rs.Kind(), len(matched))
	}
	return nil
}

func (r *Runner) print(kind metacpan.Kind, records []*metacpan.Record, opts *Options) error {
	if opts.CountOnly {
		r.output.Count(kind, len(records))
		return nil
	}
	for _, rec := range records {
		if opts.JSON {
			if err := r.output.JSON(rec); err != nil {
				return err
			}
			continue
		}
		r.output.Record(rec)
	}
	return nil
}

func (r *Runner) filter(records []*metacpan.Record, opts *Options) ([]*metacpan.Record, error) {
	records = r.filterByDate(records, opts)
	return filterByExcludes(records, opts.Excludes, opts.IgnoreCase)
}

func filtering(opts *Options) bool {
	return len(opts.Excludes) > 0 || opts.ChangedAfter != nil || opts.ChangedBefore != nil
}

// filterByDate keeps records dated within the configured window. Records
// without a usable date are dropped when a window is set.
func (r *Runner) filterByDate(records []*metacpan.Record, opts *Options) []*metacpan.Record {
	if opts.ChangedAfter == nil && opts.ChangedBefore == nil {
		return records
	}

	filtered := make([]*metacpan.Record, 0, len(records))
	for _, rec := range records {
		t, err := rec.Date().Time()
		if err != nil {
			r.output.Warningf("%s %s: skipping record without a date", rec.Kind, rec.ID)
			continue
		}
		if opts.ChangedAfter != nil && !t.After(*opts.ChangedAfter) {
			continue
		}
		if opts.ChangedBefore != nil && !t.Before(*opts.ChangedBefore) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

func filterByExcludes(records []*metacpan.Record, excludes []string, ignoreCase bool) ([]*metacpan.Record, error) {
	if len(excludes) == 0 {
		return records, nil
	}

	if ignoreCase {
		normalized := make([]string, len(excludes))
		for i, exclude := range excludes {
			normalized[i] = strings.ToLower(exclude)
		}
		excludes = normalized
	}

	var filtered []*metacpan.Record
	for _, rec := range records {
		matchID := rec.ID
		if ignoreCase {
			matchID = strings.ToLower(matchID)
		}

		excluded := false
		for _, pattern := range excludes {
			isExcluded, err := doublestar.Match(pattern, matchID)
			if err != nil {
				return nil, fmt.Errorf("exclude pattern %q failed to match %q: %w", pattern, rec.ID, err)
			}
			if isExcluded {
				excluded = true
				break
			}
		}

		if !excluded {
			filtered = append(filtered, rec)
		}
	}

	return filtered, nil
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}
