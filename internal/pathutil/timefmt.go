/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pathutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used when storing dates.
const DateLayout = "2006-01-02"

// ErrUnknownFormat is returned when no parser in a chain accepts a value.
var ErrUnknownFormat = errors.New("unrecognised format")

// FormatDuration renders d as HH:MM:SS. Hours are not wrapped into days and
// sub-second precision is truncated.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

type durationParser func(string) (time.Duration, bool)

var (
	clockPattern = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2})(?:\.(\d+))?$`)
	dayPattern   = regexp.MustCompile(`^(\d+) days?, (\d+:\d{1,2}:\d{1,2}(?:\.\d+)?)$`)
)

// durationParsers are tried in order; the first that accepts the input wins.
var durationParsers = []durationParser{
	parseClock,
	parseDayClock,
}

func parseClock(value string) (time.Duration, bool) {
	m := clockPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.ParseInt(m[1], 10, 64)
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)
	if minutes > 59 || seconds > 59 {
		return 0, false
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, true
}

// parseDayClock accepts the "N days, H:MM:SS" form older databases hold.
func parseDayClock(value string) (time.Duration, bool) {
	m := dayPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	days, _ := strconv.ParseInt(m[1], 10, 64)
	clock, ok := parseClock(m[2])
	if !ok {
		return 0, false
	}
	return time.Duration(days)*24*time.Hour + clock, true
}

// ParseDuration reads HH:MM:SS with optional fractional seconds, which are
// discarded.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	for _, parse := range durationParsers {
		if d, ok := parse(value); ok {
			return d, nil
		}
	}
	return 0, fmt.Errorf("duration %q: %w", value, ErrUnknownFormat)
}

// dateLayouts are tried in order: ISO first, then the legacy day-first forms.
var dateLayouts = []string{
	DateLayout,
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// ParseDate reads an ISO date, falling back to the legacy DD-MM-YYYY HH:MM:SS
// form. The time of day is dropped.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: %w", value, ErrUnknownFormat)
}

// FormatDate renders t as YYYY-MM-DD. The zero time renders as the "never"
// sentinel 0001-01-01.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
