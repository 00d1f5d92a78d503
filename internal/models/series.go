package models

import (
	"sort"
	"time"
)

// CalendarDate truncates t to midnight UTC of its calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeBars sorts bars by date ascending and collapses bars sharing a calendar
// date, keeping the last one seen. Dates are truncated to midnight UTC. The input
// slice is not modified.
func NormalizeBars(bars []PriceBar) []PriceBar {
	out := make([]PriceBar, len(bars))
	copy(out, bars)
	for i := range out {
		out[i].Date = CalendarDate(out[i].Date)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Date.Equal(out[i].Date) {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// ClipBars drops bars outside [start, end]. Bars must already be normalized.
func ClipBars(bars []PriceBar, start, end time.Time) []PriceBar {
	start, end = CalendarDate(start), CalendarDate(end)
	out := bars[:0:0]
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
