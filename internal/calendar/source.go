// Package calendar implements the busy-interval source backed by the
// Google Calendar freebusy API. Each room maps to one or more calendar
// IDs; bookings made through any channel show up there as busy blocks.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"villabook/internal/dates"
	"villabook/internal/interval"
)

// Source queries the freebusy endpoint for one calendar at a time.
type Source struct {
	svc    *gcal.Service
	logger zerolog.Logger
}

// NewSource builds a Source from client options (credential wiring lives
// in auth.go; tests can pass option.WithHTTPClient against a fake).
func NewSource(ctx context.Context, logger zerolog.Logger, opts ...option.ClientOption) (*Source, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Source{
		svc:    svc,
		logger: logger.With().Str("component", "calendar").Logger(),
	}, nil
}

// FreeBusy returns the busy blocks of calendarID inside window, reduced
// to day granularity. A block touching any part of a day marks the whole
// day busy.
func (s *Source) FreeBusy(ctx context.Context, calendarID string, window interval.Interval) ([]interval.Interval, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin: window.Start.Format(time.RFC3339),
		TimeMax: window.End.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}

	resp, err := s.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query for %s: %w", calendarID, err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %s missing from freebusy response", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar %s: %s", calendarID, cal.Errors[0].Reason)
	}

	busy := make([]interval.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		iv, err := periodToDays(period.Start, period.End)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", calendarID, err)
		}
		busy = append(busy, iv)
	}

	s.logger.Debug().
		Str("calendar_id", calendarID).
		Int("busy_blocks", len(busy)).
		Msg("freebusy fetched")
	return busy, nil
}

// periodToDays widens a timestamped busy block to whole days: the start
// is truncated, the end rounded up when it carries a time-of-day residue.
func periodToDays(start, end string) (interval.Interval, error) {
	from, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("busy start %q: %w", start, err)
	}
	to, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("busy end %q: %w", end, err)
	}

	day := dates.Truncate(from)
	endDay := dates.Truncate(to)
	if to.After(endDay) {
		endDay = dates.AddDays(endDay, 1)
	}
	if !endDay.After(day) {
		endDay = dates.AddDays(day, 1)
	}
	return interval.Interval{Start: day, End: endDay}, nil
}
