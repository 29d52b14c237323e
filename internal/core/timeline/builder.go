package timeline

import (
	"sort"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
)

// Builder turns change events into a chronological sequence of cumulative
// state snapshots, one per distinct effective time.
type Builder struct {
	freezeStaleGroupValue bool
}

// NewBuilder creates a timeline builder. With freezeStaleGroupValue set, a
// group whose plan saw no revision within the lookback keeps the value of its
// authoritative group record in every entry.
func NewBuilder(freezeStaleGroupValue bool) *Builder {
	return &Builder{
		freezeStaleGroupValue: freezeStaleGroupValue,
	}
}

// SortEvents returns a copy of events ordered by effective time. Events that
// share a timestamp keep their input order.
func SortEvents(events []model.ChangeEvent) []model.ChangeEvent {
	sorted := make([]model.ChangeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveTime.Before(sorted[j].EffectiveTime)
	})
	return sorted
}

// Build merges events into timeline entries. The input slice is not modified.
func (b *Builder) Build(events []model.ChangeEvent) []Entry {
	if len(events) == 0 {
		return nil
	}

	sorted := SortEvents(events)

	var (
		entries    []Entry
		groupValue int64
		subgroups  = make(map[int64]int64)
		last       = sorted[0].EffectiveTime
	)

	for _, ev := range sorted {
		// Close the previous timestamp before applying a later event
		if !ev.EffectiveTime.Equal(last) {
			entries = append(entries, snapshot(last, groupValue, subgroups))
			last = ev.EffectiveTime
		}

		switch {
		case ev.Kind.IsGroup():
			groupValue = ev.Value
		case ev.Kind.IsSubgroup():
			subgroups[ev.SubgroupID] = ev.Value
		}
	}
	entries = append(entries, snapshot(last, groupValue, subgroups))

	if b.freezeStaleGroupValue {
		maxEffective := sorted[len(sorted)-1].EffectiveTime
		if ShouldFreezeGroupValue(HasRecentRevision(events, maxEffective)) {
			if frozen, ok := AuthoritativeGroupValue(events); ok {
				for i := range entries {
					entries[i].GroupValue = frozen
				}
			}
		}
	}

	return entries
}
