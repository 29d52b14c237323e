package timeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
)

// Accepted timestamp layouts. Inputs without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 UTC",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an ISO-8601 instant and returns it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Normalize turns the input columns into change events and the per-entity
// visibility index. Empty input yields no events and a zero index.
func Normalize(cols model.Columns) ([]model.ChangeEvent, VisibilityIndex, error) {
	n, err := cols.Len()
	if err != nil {
		return nil, VisibilityIndex{}, err
	}
	if n == 0 {
		return nil, VisibilityIndex{}, nil
	}

	events := make([]model.ChangeEvent, 0, n)
	index := VisibilityIndex{Subgroups: make(map[int64]time.Time)}
	hasGroupVisibility := false
	var minEffective time.Time

	for i := 0; i < n; i++ {
		ev, err := normalizeRow(cols, i)
		if err != nil {
			return nil, VisibilityIndex{}, err
		}
		events = append(events, ev)

		if i == 0 || ev.EffectiveTime.Before(minEffective) {
			minEffective = ev.EffectiveTime
		}

		if ev.VisibilityTime == nil {
			continue
		}
		vis := *ev.VisibilityTime
		switch {
		case ev.Kind == model.KindGroup:
			if !hasGroupVisibility || vis.Before(index.Group) {
				index.Group = vis
				hasGroupVisibility = true
			}
		case ev.Kind.IsSubgroup():
			if cur, ok := index.Subgroups[ev.SubgroupID]; !ok || vis.Before(cur) {
				index.Subgroups[ev.SubgroupID] = vis
			}
		}
	}

	if !hasGroupVisibility {
		index.Group = minEffective
	}

	return events, index, nil
}

func normalizeRow(cols model.Columns, i int) (model.ChangeEvent, error) {
	kind, err := model.ParseEntityKind(cols.Kinds[i])
	if err != nil {
		return model.ChangeEvent{}, model.NewInvalidInput("entity_kind", i, "%v", err)
	}

	effective, err := ParseTimestamp(cols.EffectiveTimes[i])
	if err != nil {
		return model.ChangeEvent{}, model.NewInvalidInput("effective_time", i, "malformed timestamp %q", cols.EffectiveTimes[i])
	}

	var visibility *time.Time
	if raw := cols.VisibilityTimes[i]; raw != nil && strings.TrimSpace(*raw) != "" {
		v, err := ParseTimestamp(*raw)
		if err != nil {
			return model.ChangeEvent{}, model.NewInvalidInput("visibility_time", i, "malformed timestamp %q", *raw)
		}
		visibility = &v
	}

	value, err := normalizeValue(cols.Values[i])
	if err != nil {
		return model.ChangeEvent{}, model.NewInvalidInput("value", i, "%v", err)
	}

	subgroupID := model.NoSubgroup
	if kind.IsSubgroup() {
		if cols.SubgroupIDs[i] == nil || *cols.SubgroupIDs[i] == model.NoSubgroup {
			return model.ChangeEvent{}, model.NewInvalidInput("subgroup_id", i, "%s event without a sub-group id", kind)
		}
		subgroupID = *cols.SubgroupIDs[i]
	}

	return model.ChangeEvent{
		Kind:           kind,
		GroupID:        cols.GroupIDs[i],
		SubgroupID:     subgroupID,
		EffectiveTime:  effective,
		VisibilityTime: visibility,
		Value:          value,
		Seq:            i,
	}, nil
}

// normalizeValue maps a nullable allocation to a non-negative integer,
// truncating any fraction toward zero.
func normalizeValue(v *float64) (int64, error) {
	if v == nil {
		return 0, nil
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("allocation %v is not finite", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("allocation %v is negative", f)
	}
	if f >= math.MaxInt64 {
		return 0, fmt.Errorf("allocation %v overflows int64", f)
	}
	return int64(math.Trunc(f)), nil
}
