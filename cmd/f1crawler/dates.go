package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultWidth = 120

// resolveMinDate turns the scrape flags into the earliest publication date to
// keep. An explicit date wins over a day count; with neither, the configured
// default window applies. Days are counted back from the start of today (UTC).
func resolveMinDate(since string, daysBack, defaultDays int, now time.Time) (time.Time, error) {
	if since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --since %q: want YYYY-MM-DD", since)
		}
		return t, nil
	}
	if daysBack < 0 {
		return time.Time{}, fmt.Errorf("invalid --days-back %d: must not be negative", daysBack)
	}
	if daysBack == 0 {
		daysBack = defaultDays
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -daysBack), nil
}

func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultWidth
}
