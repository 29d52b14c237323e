package allocation

import (
	"math"
	"testing"
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/core/resample"
	"github.com/penwyp/go-alloc-timeline/internal/core/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Apply(t *testing.T) {
	index := timeline.VisibilityIndex{
		Group:     hour(1),
		Subgroups: map[int64]time.Time{7: hour(3)},
	}
	state := func(h int) resample.HourlyState {
		return resample.HourlyState{
			Hour:           hour(h),
			GroupValue:     20,
			SubgroupValues: map[int64]int64{9: 2, 7: 5, 1: 3},
		}
	}

	t.Run("group_not_visible", func(t *testing.T) {
		_, ok := NewGate(index, ExcludeInvisible).Apply(state(0))
		assert.False(t, ok)
	})

	t.Run("exclude_policy", func(t *testing.T) {
		gated, ok := NewGate(index, ExcludeInvisible).Apply(state(2))
		require.True(t, ok)
		assert.Equal(t, []SubgroupValue{{ID: 1, Value: 3}, {ID: 9, Value: 2}}, gated.Visible)
		assert.Equal(t, int64(5), gated.CountedSum)
		assert.Equal(t, int64(20), gated.GroupValue)
	})

	t.Run("include_policy", func(t *testing.T) {
		gated, ok := NewGate(index, IncludeInvisible).Apply(state(2))
		require.True(t, ok)
		assert.Len(t, gated.Visible, 2)
		assert.Equal(t, int64(10), gated.CountedSum)
	})

	t.Run("subgroup_becomes_visible", func(t *testing.T) {
		gated, ok := NewGate(index, ExcludeInvisible).Apply(state(3))
		require.True(t, ok)
		assert.Equal(t, []SubgroupValue{{ID: 1, Value: 3}, {ID: 7, Value: 5}, {ID: 9, Value: 2}}, gated.Visible)
		assert.Equal(t, int64(10), gated.CountedSum)
	})

	t.Run("empty_state", func(t *testing.T) {
		gated, ok := NewGate(index, ExcludeInvisible).Apply(resample.HourlyState{Hour: hour(4)})
		require.True(t, ok)
		assert.Empty(t, gated.Visible)
		assert.Equal(t, int64(0), gated.CountedSum)
	})
}

func TestGroupUsers(t *testing.T) {
	assert.Equal(t, int64(6), GroupUsers(10, 4))
	assert.Equal(t, int64(0), GroupUsers(10, 10))
	assert.Equal(t, int64(0), GroupUsers(3, 8))
	assert.Equal(t, int64(0), GroupUsers(0, 0))
}

func TestAddSaturating(t *testing.T) {
	assert.Equal(t, int64(7), addSaturating(3, 4))
	assert.Equal(t, int64(math.MaxInt64), addSaturating(math.MaxInt64-1, 1))
	assert.Equal(t, int64(math.MaxInt64), addSaturating(1<<62, 1<<62))
	assert.Equal(t, int64(math.MaxInt64), addSaturating(math.MaxInt64, math.MaxInt64))
}

func TestMaxSubgroup(t *testing.T) {
	_, ok := MaxSubgroup(nil)
	assert.False(t, ok)

	best, ok := MaxSubgroup([]SubgroupValue{{ID: 4, Value: 1}, {ID: 2, Value: 6}, {ID: 1, Value: 6}})
	require.True(t, ok)
	assert.Equal(t, SubgroupValue{ID: 1, Value: 6}, best)

	best, _ = MaxSubgroup([]SubgroupValue{{ID: 3, Value: 0}})
	assert.Equal(t, int64(3), best.ID)
}
