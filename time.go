package auth

import "time"

// IsWithinThresholdPeriod checks if the given time falls inside the trailing
// threshold window ending now.
func IsWithinThresholdPeriod(t time.Time, threshold time.Duration) bool {
	return t.After(time.Now().Add(-threshold))
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, threshold time.Duration) bool {
	return !IsWithinThresholdPeriod(t, threshold)
}
