package domain

import (
	"fmt"
	"time"
)

// Frequency is the sampling granularity of a quote series.
type Frequency string

const (
	FrequencyDay        Frequency = "day"
	FrequencyOneMin     Frequency = "1min"
	FrequencyFiveMin    Frequency = "5min"
	FrequencyFifteenMin Frequency = "15min"
	FrequencyThirtyMin  Frequency = "30min"
	FrequencySixtyMin   Frequency = "60min"
)

var frequencyIntervals = map[Frequency]time.Duration{
	FrequencyDay:        24 * time.Hour,
	FrequencyOneMin:     time.Minute,
	FrequencyFiveMin:    5 * time.Minute,
	FrequencyFifteenMin: 15 * time.Minute,
	FrequencyThirtyMin:  30 * time.Minute,
	FrequencySixtyMin:   time.Hour,
}

// AllFrequencies lists every supported frequency, daily first.
var AllFrequencies = []Frequency{
	FrequencyDay, FrequencyOneMin, FrequencyFiveMin,
	FrequencyFifteenMin, FrequencyThirtyMin, FrequencySixtyMin,
}

// ParseFrequency validates s against the known frequencies.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if _, ok := frequencyIntervals[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
	return f, nil
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	_, ok := frequencyIntervals[f]
	return ok
}

// Interval returns the length of one sampling bucket.
func (f Frequency) Interval() time.Duration {
	return frequencyIntervals[f]
}

// IsDaily reports whether f samples whole sessions.
func (f Frequency) IsDaily() bool {
	return f == FrequencyDay
}

// BarTime maps a timestamp to the key a bar of this frequency is stored
// under: the session date for daily bars, the timestamp itself otherwise.
func (f Frequency) BarTime(t time.Time) time.Time {
	if f.IsDaily() {
		return SessionDate(t)
	}
	return t
}
