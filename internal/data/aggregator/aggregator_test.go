package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/penwyp/go-alloc-timeline/internal/core/allocation"
	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/data/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64 { return &i }

func groupColumns(id int64, value float64, effective ...string) parser.GroupColumns {
	var cols model.Columns
	for _, e := range effective {
		cols.GroupIDs = append(cols.GroupIDs, id)
		cols.SubgroupIDs = append(cols.SubgroupIDs, nil)
		cols.EffectiveTimes = append(cols.EffectiveTimes, e)
		cols.VisibilityTimes = append(cols.VisibilityTimes, nil)
		cols.Values = append(cols.Values, floatPtr(value))
		cols.Kinds = append(cols.Kinds, model.LabelGroup)
	}
	return parser.GroupColumns{GroupID: id, Columns: cols}
}

func TestAggregator_RunKeepsGroupOrder(t *testing.T) {
	groups := []parser.GroupColumns{
		groupColumns(3, 30, "2023-01-01T00:00:00Z", "2023-01-01T02:00:00Z"),
		groupColumns(1, 10, "2023-01-01T00:00:00Z"),
		groupColumns(2, 20, "2023-01-01T05:00:00Z"),
	}

	reports, err := NewAggregator(allocation.DefaultOptions(), 2, nil).Run(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, int64(3), reports[0].GroupID)
	assert.Equal(t, 3, reports[0].Hours())
	assert.Equal(t, int64(30), reports[0].Records[0].GroupValue)

	assert.Equal(t, int64(1), reports[1].GroupID)
	assert.Len(t, reports[1].Records, 1)
	assert.Equal(t, int64(2), reports[2].GroupID)
}

func TestAggregator_ErrorNamesGroup(t *testing.T) {
	groups := []parser.GroupColumns{
		groupColumns(1, 10, "2023-01-01T00:00:00Z"),
		groupColumns(7, 10, "yesterday"),
	}

	reports, err := NewAggregator(allocation.DefaultOptions(), 1, nil).Run(context.Background(), groups)
	assert.Nil(t, reports)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group 7")
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestAggregator_InvalidOptions(t *testing.T) {
	opts := allocation.Options{SubgroupOutput: allocation.SubgroupOutputMode(5)}
	_, err := NewAggregator(opts, 1, nil).Run(context.Background(), nil)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestAggregator_RespectsConcurrencyLimit(t *testing.T) {
	var running, peak int32
	agg := NewAggregator(allocation.DefaultOptions(), 2, nil)
	agg.transform = func(cols model.Columns, opts allocation.Options) ([]model.OutputRecord, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return []model.OutputRecord{}, nil
	}

	groups := make([]parser.GroupColumns, 10)
	for i := range groups {
		groups[i] = parser.GroupColumns{GroupID: int64(i)}
	}

	reports, err := agg.Run(context.Background(), groups)
	require.NoError(t, err)
	assert.Len(t, reports, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestAggregator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(allocation.DefaultOptions(), 1, nil).Run(ctx, []parser.GroupColumns{
		groupColumns(1, 10, "2023-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_UsesInjectedClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	agg := NewAggregator(allocation.DefaultOptions(), 1, clock)
	assert.Same(t, clock, agg.clock)

	reports, err := agg.Run(context.Background(), []parser.GroupColumns{
		groupColumns(1, 10, "2023-01-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestNewAggregator_DefaultConcurrency(t *testing.T) {
	agg := NewAggregator(allocation.DefaultOptions(), 0, nil)
	assert.Greater(t, agg.concurrency, 0)
	assert.NotNil(t, agg.clock)
	assert.Equal(t, allocation.DefaultOptions(), agg.Options())
}

func TestGroupReport_LimitHours(t *testing.T) {
	h := func(i int) time.Time { return time.Date(2023, 1, 1, i, 0, 0, 0, time.UTC) }
	report := GroupReport{GroupID: 1, Records: []model.OutputRecord{
		{Hour: h(3), GroupID: 1},
		{Hour: h(3), GroupID: 1, SubgroupID: intPtr(5)},
		{Hour: h(2), GroupID: 1},
		{Hour: h(1), GroupID: 1},
		{Hour: h(1), GroupID: 1, SubgroupID: intPtr(5)},
	}}

	assert.Equal(t, 3, report.Hours())
	assert.Len(t, report.LimitHours(0).Records, 5)
	assert.Len(t, report.LimitHours(1).Records, 2)
	assert.Len(t, report.LimitHours(2).Records, 3)
	assert.Len(t, report.LimitHours(10).Records, 5)
	assert.Equal(t, 2, report.LimitHours(2).Hours())
}
