// Package allocation reconstructs the hourly effective allocation series of a
// group and its sub-groups from a sparse log of change events.
//
// Transform is the only entry point. It is a pure function of its input: no
// I/O, no shared state, and either a complete result or an error.
package allocation

import (
	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/core/resample"
	"github.com/penwyp/go-alloc-timeline/internal/core/timeline"
)

// Transform builds the report rows for one group's event columns. Rows are
// ordered newest hour first. Empty input returns an empty result and no error.
// The reported group id is the one on the first input row.
func Transform(cols model.Columns, opts Options) ([]model.OutputRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	events, visibility, err := timeline.Normalize(cols)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []model.OutputRecord{}, nil
	}

	entries := timeline.NewBuilder(opts.FreezeStaleGroupValue).Build(events)
	states := resample.NewResampler(opts.Lookback).Resample(entries)

	gate := NewGate(visibility, opts.InvisibleSubgroups)
	emitter := NewEmitter(events[0].GroupID, opts.SubgroupOutput, gate)
	return emitter.Emit(states), nil
}
