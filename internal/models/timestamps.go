package models

import "time"

// epochMillisFloor: any epoch value below this is assumed to be seconds.
// Heuristic over historical writers that mixed units; the storage boundary
// always writes milliseconds.
const epochMillisFloor = int64(1_000_000_000_000)

// NormalizeEpochMillis canonicalizes a stored epoch value to milliseconds.
// Values below 10^12 are treated as seconds and scaled up.
func NormalizeEpochMillis(v int64) int64 {
	if v > 0 && v < epochMillisFloor {
		return v * 1000
	}
	return v
}

// NormalizeEpochMillisPtr is NormalizeEpochMillis over a nullable column.
func NormalizeEpochMillisPtr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := NormalizeEpochMillis(*v)
	return &n
}

// EpochMillis converts a time to the canonical storage unit.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis converts a canonical stored value back to a time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
