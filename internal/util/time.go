package util

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// HourLayout is how report hours are rendered.
const HourLayout = "2006-01-02 15:04"

// TimeProvider handles timezone-aware rendering and a swappable clock.
type TimeProvider struct {
	location *time.Location
	clock    clockwork.Clock
	mu       sync.RWMutex
}

var (
	globalTimeProvider *TimeProvider
	mu                 sync.Mutex
)

// NewTimeProvider creates a provider for timezone backed by clock.
func NewTimeProvider(timezone string, clock clockwork.Clock) (*TimeProvider, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	provider := &TimeProvider{clock: clock}
	if err := provider.SetTimezone(timezone); err != nil {
		return nil, err
	}
	return provider, nil
}

// InitializeTimeProvider initializes the global time provider with the specified timezone
func InitializeTimeProvider(timezone string) error {
	provider, err := NewTimeProvider(timezone, nil)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	globalTimeProvider = provider
	return nil
}

// GetTimeProvider returns the global time provider instance.
// If not initialized, it defaults to UTC.
func GetTimeProvider() *TimeProvider {
	mu.Lock()
	defer mu.Unlock()
	if globalTimeProvider == nil {
		globalTimeProvider, _ = NewTimeProvider("UTC", nil)
	}
	return globalTimeProvider
}

// SetTimezone updates the timezone for the time provider
func (tp *TimeProvider) SetTimezone(timezone string) error {
	loc := time.UTC
	switch timezone {
	case "", "UTC":
	case "Local":
		loc = time.Local
	default:
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w\nValid examples: UTC, Local, America/New_York, Asia/Shanghai, Europe/London", timezone, err)
		}
		loc = l
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.location = loc
	return nil
}

// Location returns the configured timezone.
func (tp *TimeProvider) Location() *time.Location {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.location
}

// Clock returns the clock used for Now and timings.
func (tp *TimeProvider) Clock() clockwork.Clock {
	return tp.clock
}

// Now returns the current time in the configured timezone
func (tp *TimeProvider) Now() time.Time {
	return tp.In(tp.clock.Now())
}

// In converts a time to the configured timezone
func (tp *TimeProvider) In(t time.Time) time.Time {
	return t.In(tp.Location())
}

// Format formats a time according to the layout in the configured timezone
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	return tp.In(t).Format(layout)
}

// FormatHour renders a report hour.
func (tp *TimeProvider) FormatHour(t time.Time) string {
	return tp.Format(t, HourLayout)
}
