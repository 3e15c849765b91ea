package feedback

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ClampScore converts a decoded JSON value into a score in [MinScore, MaxScore].
//
// Numbers are truncated toward zero before clamping, so 7.9 becomes 7 and 10.5
// becomes 10. Strings are read by their leading number ("8", "8/10", "6.5").
// Anything else, including a missing value, yields DefaultScore.
func ClampScore(v any) int {
	n, ok := scoreValue(v)
	if !ok {
		return DefaultScore
	}
	return clamp(n)
}

func scoreValue(v any) (int, bool) {
	switch s := v.(type) {
	case float64:
		return truncate(s)
	case float32:
		return truncate(float64(s))
	case int:
		return s, true
	case int64:
		return int(s), true
	case json.Number:
		if i, err := s.Int64(); err == nil {
			return int(i), true
		}
		f, ok := parseFloat(string(s))
		if !ok {
			return 0, false
		}
		return truncate(f)
	case string:
		return leadingNumber(s)
	default:
		return 0, false
	}
}

func truncate(f float64) (int, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	if math.IsInf(f, 1) {
		return MaxScore, true
	}
	if math.IsInf(f, -1) {
		return MinScore, true
	}
	t := math.Trunc(f)
	// Guard the int conversion; clamp does the rest.
	if t > math.MaxInt32 {
		return MaxScore, true
	}
	if t < math.MinInt32 {
		return MinScore, true
	}
	return int(t), true
}

// leadingNumber parses the longest numeric prefix of s, e.g. "8/10" -> 8.
func leadingNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			end = i + 1
		case i == 0 && (r == '-' || r == '+'):
		case r == '.' && !seenDot:
			seenDot = true
		default:
			break scan
		}
	}
	prefix := s[:end]
	if prefix == "" || prefix == "-" || prefix == "+" {
		return 0, false
	}
	f, ok := parseFloat(prefix)
	if !ok {
		return 0, false
	}
	return truncate(f)
}

// parseFloat accepts out-of-range values as the infinity or zero that
// strconv rounds them to.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// numberValue reports the value of a decoded JSON number.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		return parseFloat(string(n))
	default:
		return 0, false
	}
}

func clamp(n int) int {
	return max(MinScore, min(MaxScore, n))
}
