package allocation

import (
	"sort"
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/core/resample"
	"github.com/penwyp/go-alloc-timeline/internal/core/timeline"
)

// SubgroupValue is one sub-group's allocation at an hour.
type SubgroupValue struct {
	ID    int64
	Value int64
}

// GatedHour is an hourly state after visibility filtering.
type GatedHour struct {
	Hour       time.Time
	GroupValue int64
	// Visible sub-groups in ascending id order
	Visible []SubgroupValue
	// Sum of the sub-group values that count against the residual
	CountedSum int64
}

// Gate suppresses entities that are not yet visible at an hour.
type Gate struct {
	index  timeline.VisibilityIndex
	policy InvisibleSubgroupPolicy
}

// NewGate creates a gate over a visibility index.
func NewGate(index timeline.VisibilityIndex, policy InvisibleSubgroupPolicy) *Gate {
	return &Gate{
		index:  index,
		policy: policy,
	}
}

// Apply filters one hourly state. It returns false when the group itself is
// not visible yet, in which case nothing is reported for the hour.
func (g *Gate) Apply(state resample.HourlyState) (GatedHour, bool) {
	if !g.index.GroupVisibleAt(state.Hour) {
		return GatedHour{}, false
	}

	ids := make([]int64, 0, len(state.SubgroupValues))
	for id := range state.SubgroupValues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	gated := GatedHour{
		Hour:       state.Hour,
		GroupValue: state.GroupValue,
		Visible:    make([]SubgroupValue, 0, len(ids)),
	}
	for _, id := range ids {
		value := state.SubgroupValues[id]
		if g.index.SubgroupVisibleAt(id, state.Hour) {
			gated.Visible = append(gated.Visible, SubgroupValue{ID: id, Value: value})
			gated.CountedSum = addSaturating(gated.CountedSum, value)
		} else if g.policy == IncludeInvisible {
			gated.CountedSum = addSaturating(gated.CountedSum, value)
		}
	}

	return gated, true
}
