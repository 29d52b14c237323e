package aggregator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-alloc-timeline/internal/core/allocation"
	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/data/parser"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// GroupReport is the hourly series of one group, newest hour first.
type GroupReport struct {
	GroupID int64                `json:"group_id"`
	Records []model.OutputRecord `json:"records"`
}

// Hours counts the distinct hours in the report.
func (r GroupReport) Hours() int {
	n := 0
	for _, rec := range r.Records {
		if rec.IsGroupRow() {
			n++
		}
	}
	return n
}

// LimitHours keeps the newest n hours of the report. n <= 0 keeps everything.
func (r GroupReport) LimitHours(n int) GroupReport {
	if n <= 0 {
		return r
	}
	seen := 0
	for i, rec := range r.Records {
		if rec.IsGroupRow() {
			if seen == n {
				return GroupReport{GroupID: r.GroupID, Records: r.Records[:i]}
			}
			seen++
		}
	}
	return r
}

// TransformFunc computes the records of one group.
type TransformFunc func(cols model.Columns, opts allocation.Options) ([]model.OutputRecord, error)

// Aggregator runs the transform once per group, in parallel.
type Aggregator struct {
	opts        allocation.Options
	concurrency int
	clock       clockwork.Clock
	transform   TransformFunc
}

// NewAggregator creates an Aggregator. concurrency <= 0 uses one worker per
// CPU; a nil clock uses the real clock.
func NewAggregator(opts allocation.Options, concurrency int, clock clockwork.Clock) *Aggregator {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Aggregator{
		opts:        opts,
		concurrency: concurrency,
		clock:       clock,
		transform:   allocation.Transform,
	}
}

// Options returns the transform options every group is run with.
func (a *Aggregator) Options() allocation.Options {
	return a.opts
}

// Run transforms every group and returns the reports in the order groups
// were given. The first failing group cancels the rest and its error names
// the group id.
func (a *Aggregator) Run(ctx context.Context, groups []parser.GroupColumns) ([]GroupReport, error) {
	if err := a.opts.Validate(); err != nil {
		return nil, err
	}

	start := a.clock.Now()
	reports := make([]GroupReport, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			records, err := a.transform(group.Columns, a.opts)
			if err != nil {
				return fmt.Errorf("group %d: %w", group.GroupID, err)
			}
			reports[i] = GroupReport{GroupID: group.GroupID, Records: records}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		util.LogWarnf("Aggregation aborted after %s: %v", util.FormatDuration(a.clock.Since(start)), err)
		return nil, err
	}

	util.LogDebugf("Aggregated %d groups in %s with %d workers", len(groups), util.FormatDuration(a.clock.Since(start)), a.concurrency)
	return reports, nil
}
