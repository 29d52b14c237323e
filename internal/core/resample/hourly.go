// Package resample samples a timeline onto fixed one-hour boundaries, carrying
// the last known state forward between changes.
package resample

import (
	"fmt"
	"strings"
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/core/constants"
	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/core/timeline"
)

// LookbackWindow limits how far back hours are produced.
type LookbackWindow int

const (
	// LookbackAll covers every hour from the earliest to the latest event.
	LookbackAll LookbackWindow = iota
	// LookbackLastYear covers at most the year ending at the latest event.
	LookbackLastYear
)

// ParseLookbackWindow parses "all" or "last-year".
func ParseLookbackWindow(s string) (LookbackWindow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return LookbackAll, nil
	case "last-year", "last_year", "lastyear", "year":
		return LookbackLastYear, nil
	default:
		return 0, model.NewInvalidInput("lookback", -1, "unknown lookback window %q", s)
	}
}

func (w LookbackWindow) String() string {
	switch w {
	case LookbackAll:
		return "all"
	case LookbackLastYear:
		return "last-year"
	default:
		return fmt.Sprintf("LookbackWindow(%d)", int(w))
	}
}

// HourlyState is the carried-forward state at one hour boundary.
// SubgroupValues is shared with the timeline entry it came from and must be
// treated as read-only.
type HourlyState struct {
	Hour           time.Time
	GroupValue     int64
	SubgroupValues map[int64]int64
}

// RoundToHour truncates t to its hour and moves to the next hour when the
// minute is 30 or later. Seconds do not take part in the rounding.
func RoundToHour(t time.Time) time.Time {
	t = t.UTC()
	hour := t.Truncate(constants.Hour)
	if t.Minute() >= constants.RoundUpMinute {
		hour = hour.Add(constants.Hour)
	}
	return hour
}

// Resampler walks hour boundaries over a timeline.
type Resampler struct {
	window LookbackWindow
}

// NewResampler creates a resampler for the given lookback window.
func NewResampler(window LookbackWindow) *Resampler {
	return &Resampler{window: window}
}

// Bounds returns the first and last hour boundaries for an event range.
func (r *Resampler) Bounds(minEffective, maxEffective time.Time) (time.Time, time.Time) {
	from := minEffective
	if r.window == LookbackLastYear {
		if cutoff := constants.LookbackStart(maxEffective); cutoff.After(from) {
			from = cutoff
		}
	}
	return RoundToHour(from), RoundToHour(maxEffective)
}

// Resample produces one state per hour in the window, oldest first. Entries
// must be in ascending time order, as produced by timeline.Builder. Hours
// before the first entry carry the empty state.
func (r *Resampler) Resample(entries []timeline.Entry) []HourlyState {
	if len(entries) == 0 {
		return nil
	}

	start, end := r.Bounds(entries[0].Time, entries[len(entries)-1].Time)
	if end.Before(start) {
		return nil
	}

	states := make([]HourlyState, 0, int(end.Sub(start)/constants.Hour)+1)
	next := 0
	var current *timeline.Entry

	for hour := start; !hour.After(end); hour = hour.Add(constants.Hour) {
		for next < len(entries) && !entries[next].Time.After(hour) {
			current = &entries[next]
			next++
		}

		state := HourlyState{Hour: hour}
		if current != nil {
			state.GroupValue = current.GroupValue
			state.SubgroupValues = current.SubgroupValues
		}
		states = append(states, state)
	}

	return states
}
