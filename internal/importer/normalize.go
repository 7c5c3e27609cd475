package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var bareYearRegex = regexp.MustCompile(`^\d{4}$`)

// ParseDate coerces raw text into a canonical YYYY-MM-DD date string.
// A bare 4-digit year expands to January 1st of that year. Anything else
// that is not already YYYY-MM-DD yields "" (a null date, never an error).
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if bareYearRegex.MatchString(s) {
		return s + "-01-01"
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}
	return ""
}

// ParseRating normalizes heterogeneous rating encodings onto the fixed
// 0.0–9.9 scale with one decimal of precision.
//
// Accepted forms: a bare number ("8", "8.5"), a fraction ("8/10", scaled to
// 0–10), and a percentage ("80%", divided by 10). A bare number above 10 and
// at most 100 is reinterpreted as a percentage value. The result is clamped
// to [0.0, 9.9] and rounded to one decimal. Unparseable input reports
// ok=false (a null rating, never an error).
func ParseRating(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	var val float64
	switch {
	case strings.Contains(s, "/"):
		parts := strings.Split(s, "/")
		num, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, false
		}
		den := 10.0
		if d := strings.TrimSpace(parts[1]); d != "" {
			den, err = strconv.ParseFloat(d, 64)
			if err != nil || den == 0 {
				return 0, false
			}
		}
		val = num / den * 10.0
	case strings.HasSuffix(s, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return 0, false
		}
		val = pct / 10.0
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		val = f
		if val > 10 && val <= 100 {
			val = val / 10.0
		}
	}

	val = math.Min(9.9, math.Max(0.0, val))
	return math.Round(val*10) / 10, true
}

// ParseSeason parses a season number, defaulting to 1 on empty or
// unparseable input.
func ParseSeason(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return n
}

// ParseEpisodeNumber parses an episode number; ok=false means null.
func ParseEpisodeNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseAmount parses a monetary amount, defaulting to 0 on bad input.
func ParseAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
