// Package interval implements the date-interval algebra the availability
// logic is built on: merging busy periods, computing the free complement
// inside a window, and filtering candidates by minimum length. Intervals
// are half-open [Start, End) at day granularity.
package interval

import (
	"fmt"
	"sort"
	"time"

	"villabook/internal/dates"
)

// Interval is a half-open [Start, End) date range. End must be strictly
// after Start; zero-length intervals are invalid.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an interval from two days, rejecting empty or inverted ranges.
func New(start, end time.Time) (Interval, error) {
	start, end = dates.Truncate(start), dates.Truncate(end)
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("interval end %s must be after start %s",
			dates.FormatISO(end), dates.FormatISO(start))
	}
	return Interval{Start: start, End: end}, nil
}

// Nights returns the interval length in nights.
func (iv Interval) Nights() int {
	return dates.DaysBetween(iv.Start, iv.End)
}

// Intersects reports whether two intervals share at least one day.
// Touching endpoints do not count: [a,b) and [b,c) are disjoint.
func (iv Interval) Intersects(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether day d falls inside the interval.
func (iv Interval) Contains(d time.Time) bool {
	d = dates.Truncate(d)
	return !d.Before(iv.Start) && d.Before(iv.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", dates.FormatISO(iv.Start), dates.FormatISO(iv.End))
}

// Merge sorts intervals by start and folds overlapping or exactly adjacent
// runs into one. The result is sorted and pairwise disjoint, with a strict
// gap between consecutive outputs. The input is not modified.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// Complement returns the sub-intervals of window not covered by busy.
// busy must already be merged (sorted, disjoint). An empty busy list
// yields the window itself; full coverage yields an empty result.
func Complement(busy []Interval, window Interval) []Interval {
	var free []Interval
	cursor := window.Start

	for _, b := range busy {
		if !b.End.After(window.Start) || !b.Start.Before(window.End) {
			continue
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// FilterMinNights drops intervals shorter than minNights.
func FilterMinNights(intervals []Interval, minNights int) []Interval {
	var kept []Interval
	for _, iv := range intervals {
		if iv.Nights() >= minNights {
			kept = append(kept, iv)
		}
	}
	return kept
}
