package calendar

import (
	"testing"
	"time"
)

func TestPeriodToDays(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name      string
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			"aligned full days",
			"2024-01-10T00:00:00Z", "2024-01-13T00:00:00Z",
			day(2024, 1, 10), day(2024, 1, 13),
		},
		{
			"checkout time rounds the end up",
			"2024-01-10T14:00:00Z", "2024-01-12T10:00:00Z",
			day(2024, 1, 10), day(2024, 1, 13),
		},
		{
			"sub-day block occupies one day",
			"2024-01-10T09:00:00Z", "2024-01-10T11:00:00Z",
			day(2024, 1, 10), day(2024, 1, 11),
		},
		{
			"midnight-to-midnight single day",
			"2024-01-10T00:00:00Z", "2024-01-11T00:00:00Z",
			day(2024, 1, 10), day(2024, 1, 11),
		},
		{
			"zero-length event still blocks its day",
			"2024-01-10T09:00:00Z", "2024-01-10T09:00:00Z",
			day(2024, 1, 10), day(2024, 1, 11),
		},
		{
			"non-utc offsets normalize",
			"2024-01-10T01:00:00+02:00", "2024-01-10T23:30:00+02:00",
			day(2024, 1, 9), day(2024, 1, 11),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := periodToDays(tt.start, tt.end)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("periodToDays = [%v, %v), want [%v, %v)",
					got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPeriodToDaysRejectsBadTimestamps(t *testing.T) {
	if _, err := periodToDays("not-a-time", "2024-01-10T00:00:00Z"); err == nil {
		t.Error("expected error for bad start")
	}
	if _, err := periodToDays("2024-01-10T00:00:00Z", "not-a-time"); err == nil {
		t.Error("expected error for bad end")
	}
}
