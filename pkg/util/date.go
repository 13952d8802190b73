package util

import (
	"strconv"
	"time"
)

// secondsCutoff separates unix seconds from unix milliseconds. Any timestamp
// below it is read as seconds (it is year 5138 in seconds, 1973 in ms).
const secondsCutoff = 100_000_000_000

// ParseTime tries RFC3339, RFC3339Nano and unix seconds or milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.UnixMilli(NormalizeMillis(ts)), true
	}
	return time.Time{}, false
}

// NormalizeMillis converts a unix timestamp in seconds to milliseconds and
// leaves millisecond values unchanged.
func NormalizeMillis(ts int64) int64 {
	if ts > -secondsCutoff && ts < secondsCutoff {
		return ts * 1000
	}
	return ts
}
