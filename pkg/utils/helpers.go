package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string like "5m", falling back to def
// when the string is empty or malformed.
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return def
	}
	return duration
}

// ParseValue converts a raw cell into int, float64 or the trimmed string.
// Empty cells, missing-value markers and non-finite numbers become nil.
func ParseValue(s string) interface{} {
	// Trim whitespace first
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return nil
	}

	// try int
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	return s
}

// ParseNumber parses a numeric cell. Empty cells and the usual missing-value
// markers become NaN.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "na", "n/a":
		return true
	}
	return false
}

// CleanHeader trims whitespace and removes every quote from a CSV header cell.
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ReplaceAll(h, `"`, "")
	return strings.TrimSpace(h)
}
