package timeline

import (
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/core/constants"
	"github.com/penwyp/go-alloc-timeline/internal/core/model"
)

// ShouldFreezeGroupValue is the stale plan policy: a plan that has not been
// revised within the lookback is assumed unchanged.
func ShouldFreezeGroupValue(hasRecentRevision bool) bool {
	return !hasRecentRevision
}

// HasRecentRevision reports whether any revision event became visible within
// the lookback that ends at maxEffective. Revisions without a visibility time
// are dated by their effective time.
func HasRecentRevision(events []model.ChangeEvent, maxEffective time.Time) bool {
	cutoff := constants.LookbackStart(maxEffective)
	for _, ev := range events {
		if !ev.Kind.IsRevision() {
			continue
		}
		at := ev.EffectiveTime
		if ev.VisibilityTime != nil {
			at = *ev.VisibilityTime
		}
		if !at.Before(cutoff) {
			return true
		}
	}
	return false
}

// AuthoritativeGroupValue returns the value of the last group record in input
// order. Revisions are not authoritative.
func AuthoritativeGroupValue(events []model.ChangeEvent) (int64, bool) {
	var (
		value int64
		found bool
	)
	for _, ev := range events {
		if ev.Kind == model.KindGroup {
			value = ev.Value
			found = true
		}
	}
	return value, found
}
