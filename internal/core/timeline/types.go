package timeline

import (
	"time"
)

// Entry is the cumulative state immediately after applying every event at
// Time. SubgroupValues is owned by the entry and never mutated after the
// entry is built.
type Entry struct {
	Time           time.Time
	GroupValue     int64
	SubgroupValues map[int64]int64
}

// VisibilityIndex holds the earliest moment each entity becomes visible.
type VisibilityIndex struct {
	Group     time.Time
	Subgroups map[int64]time.Time
}

// GroupVisibleAt reports whether the group is visible at hour t.
func (v VisibilityIndex) GroupVisibleAt(t time.Time) bool {
	return !t.Before(v.Group)
}

// SubgroupVisibleAt reports whether sub-group id is visible at hour t.
// Sub-groups that never carried a visibility time are always visible.
func (v VisibilityIndex) SubgroupVisibleAt(id int64, t time.Time) bool {
	visible, ok := v.Subgroups[id]
	if !ok {
		return true
	}
	return !t.Before(visible)
}

func snapshot(t time.Time, groupValue int64, subgroups map[int64]int64) Entry {
	values := make(map[int64]int64, len(subgroups))
	for id, v := range subgroups {
		values[id] = v
	}
	return Entry{
		Time:           t,
		GroupValue:     groupValue,
		SubgroupValues: values,
	}
}
