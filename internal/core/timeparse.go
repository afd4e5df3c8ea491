package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	hourMinutePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	dayMonthPattern   = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})[ T](\d{1,2}):(\d{2})$`)
)

// ParseFlexibleTime interprets the time formats found in imported sheets:
// a bare HH:MM resolves to today in now's location, D/M/YY H:MM (slash or
// dash separators, two-digit years in the 2000s) resolves to that date, and
// ISO-style strings are tried last. Returns false for anything else.
func ParseFlexibleTime(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if m := hourMinutePattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h > 23 || mi > 59 {
			return time.Time{}, false
		}
		return time.Date(now.Year(), now.Month(), now.Day(), h, mi, 0, 0, now.Location()), true
	}
	if m := dayMonthPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		h, _ := strconv.Atoi(m[4])
		mi, _ := strconv.Atoi(m[5])
		if month < 1 || month > 12 || day < 1 || day > 31 || h > 23 || mi > 59 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, h, mi, 0, 0, now.Location()), true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MinutesBetween returns a-b rounded to whole minutes.
func MinutesBetween(a, b time.Time) int {
	return int(math.Round(a.Sub(b).Minutes()))
}
