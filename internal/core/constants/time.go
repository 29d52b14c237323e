package constants

import "time"

const (
	// Resampling step
	Hour        = time.Hour
	HourSeconds = int64(3600)

	// Minute at which a timestamp rounds up to the next hour
	RoundUpMinute = 30

	// Lookback used by the last-year window and the stale plan freeze
	LookbackYears = 1
)

// LookbackStart returns the start of the one-year lookback ending at t.
func LookbackStart(t time.Time) time.Time {
	return t.AddDate(-LookbackYears, 0, 0)
}
