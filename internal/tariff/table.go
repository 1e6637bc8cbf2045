// Package tariff represents per-room nightly rate tables and guards their
// integrity: when sorted, entries must tile their span with no gap and no
// overlap. Violations are reported with both offending rows, never
// silently corrected.
package tariff

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"villabook/internal/dates"
	"villabook/internal/money"
)

// Entry is a half-open [Start, End) date range with a nightly rate.
type Entry struct {
	Start       time.Time
	End         time.Time
	NightlyRate money.Cents
}

// Table is a validated, start-sorted sequence of entries. Build one with
// Validate or FromRows; the zero Table has no coverage.
type Table struct {
	entries []Entry
}

// GapError reports an uncovered day between two adjacent entries.
type GapError struct {
	Before Entry
	After  Entry
}

func (e *GapError) Error() string {
	return fmt.Sprintf("tariff gap between %s and %s",
		dates.FormatISO(e.Before.End), dates.FormatISO(e.After.Start))
}

// OverlapError reports two adjacent entries covering a common day.
type OverlapError struct {
	Before Entry
	After  Entry
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("tariff overlap between %s and %s",
		dates.FormatISO(e.After.Start), dates.FormatISO(e.Before.End))
}

// Validate sorts entries by start and checks the no-gap/no-overlap
// invariant on every adjacent pair. The input is not modified.
func Validate(entries []Entry) (*Table, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for _, e := range sorted {
		if !e.Start.Before(e.End) {
			return nil, fmt.Errorf("tariff entry %s..%s is empty or inverted",
				dates.FormatISO(e.Start), dates.FormatISO(e.End))
		}
	}

	for i := 0; i < len(sorted)-1; i++ {
		prev, next := sorted[i], sorted[i+1]
		switch {
		case next.Start.After(prev.End):
			return nil, &GapError{Before: prev, After: next}
		case next.Start.Before(prev.End):
			return nil, &OverlapError{Before: prev, After: next}
		}
	}

	return &Table{entries: sorted}, nil
}

// RateOn returns the nightly rate effective on day d. The second return
// is false when d is outside the table's covered span.
func (t *Table) RateOn(d time.Time) (money.Cents, bool) {
	if t == nil || len(t.entries) == 0 {
		return 0, false
	}
	d = dates.Truncate(d)
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].End.After(d)
	})
	if i == len(t.entries) || d.Before(t.entries[i].Start) {
		return 0, false
	}
	return t.entries[i].NightlyRate, true
}

// Entries returns the sorted entries.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Span returns the half-open range covered by the table.
func (t *Table) Span() (start, end time.Time, ok bool) {
	if t == nil || len(t.entries) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.entries[0].Start, t.entries[len(t.entries)-1].End, true
}

// IsGap reports whether err is a tariff gap violation.
func IsGap(err error) bool {
	var ge *GapError
	return errors.As(err, &ge)
}

// IsOverlap reports whether err is a tariff overlap violation.
func IsOverlap(err error) bool {
	var oe *OverlapError
	return errors.As(err, &oe)
}
