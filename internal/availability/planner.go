// Package availability decides whether a room is free for a requested
// window and, when it is not, enumerates the nearest free alternative
// windows with their prices. A room may be backed by several calendars;
// it is available only when every one of them is free.
package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"villabook/internal/dates"
	"villabook/internal/interval"
	"villabook/internal/metrics"
	"villabook/internal/pricing"
	"villabook/internal/tariff"
)

// BusySource fetches busy blocks for one calendar inside a window.
// Implementations return periods at any granularity; the planner treats
// them at day granularity.
type BusySource interface {
	FreeBusy(ctx context.Context, calendarID string, window interval.Interval) ([]interval.Interval, error)
}

// TariffProvider loads the validated tariff table for a room.
type TariffProvider interface {
	TariffTable(ctx context.Context, room string) (*tariff.Table, error)
}

// Room maps a bookable unit to the calendars that must all be free.
type Room struct {
	Name        string
	CalendarIDs []string
}

// Policy holds the request-acceptance rules.
type Policy struct {
	// HorizonMonths limits how far in the future a request may start.
	HorizonMonths int
	// MinStayNights is the shortest alternative window worth offering.
	MinStayNights int
}

// Outcome classifies the result of one availability query.
type Outcome string

const (
	FullyAvailable     Outcome = "fully_available"
	PartiallyAvailable Outcome = "partially_available"
	NoAvailability     Outcome = "no_availability"
	TooFarInFuture     Outcome = "too_far_in_future"
)

// Alternative is a free window inside the requested range with its price.
// An unpriced alternative is still offered; the caller renders it as
// "quote on request".
type Alternative struct {
	Window interval.Interval
	Price  pricing.Result
}

// Report is the planner's answer for one room.
type Report struct {
	Room    string
	Outcome Outcome
	// Price is set when the outcome is FullyAvailable.
	Price pricing.Result
	// Alternatives is non-empty exactly when the outcome is
	// PartiallyAvailable, ordered earliest start first.
	Alternatives []Alternative
}

// Planner orchestrates busy sources, interval algebra and pricing.
type Planner struct {
	busy    BusySource
	tariffs TariffProvider
	engine  *pricing.Engine
	policy  Policy
	now     func() time.Time
	logger  zerolog.Logger
}

// NewPlanner wires a planner. The now function is replaceable for tests.
func NewPlanner(busy BusySource, tariffs TariffProvider, engine *pricing.Engine, policy Policy, logger zerolog.Logger) *Planner {
	if policy.MinStayNights < 1 {
		policy.MinStayNights = 1
	}
	if policy.HorizonMonths <= 0 {
		policy.HorizonMonths = 12
	}
	return &Planner{
		busy:    busy,
		tariffs: tariffs,
		engine:  engine,
		policy:  policy,
		now:     time.Now,
		logger:  logger.With().Str("component", "availability").Logger(),
	}
}

// WithNow overrides the clock used for the horizon check.
func (p *Planner) WithNow(now func() time.Time) *Planner {
	p.now = now
	return p
}

// CheckRoom runs one availability query for one room. Fetch failures on
// any source make the whole query fail; the planner never degrades to a
// partial answer.
func (p *Planner) CheckRoom(ctx context.Context, room Room, stay pricing.Stay) (Report, error) {
	if err := stay.Validate(); err != nil {
		return Report{}, err
	}
	window := interval.Interval{
		Start: dates.Truncate(stay.Checkin),
		End:   dates.Truncate(stay.Checkout),
	}

	if p.beyondHorizon(window.Start) {
		metrics.IncAvailability(string(TooFarInFuture))
		return Report{Room: room.Name, Outcome: TooFarInFuture}, nil
	}

	busyBySource, err := p.fetchBusy(ctx, room, window)
	if err != nil {
		return Report{}, err
	}

	table, err := p.tariffs.TariffTable(ctx, room.Name)
	if err != nil {
		return Report{}, fmt.Errorf("tariff for %s: %w", room.Name, err)
	}

	if allFree(busyBySource, window) {
		price, err := p.engine.Quote(table, stay)
		if err != nil {
			return Report{}, err
		}
		metrics.IncAvailability(string(FullyAvailable))
		return Report{Room: room.Name, Outcome: FullyAvailable, Price: price}, nil
	}

	alternatives, err := p.collectAlternatives(busyBySource, window, stay, table)
	if err != nil {
		return Report{}, err
	}
	if len(alternatives) == 0 {
		metrics.IncAvailability(string(NoAvailability))
		return Report{Room: room.Name, Outcome: NoAvailability}, nil
	}
	metrics.IncAvailability(string(PartiallyAvailable))
	return Report{Room: room.Name, Outcome: PartiallyAvailable, Alternatives: alternatives}, nil
}

func (p *Planner) beyondHorizon(start time.Time) bool {
	limit := dates.Truncate(p.now()).AddDate(0, p.policy.HorizonMonths, 0)
	return start.After(limit)
}

// fetchBusy queries every calendar of the room concurrently and returns
// the merged busy set per source. The fetches are independent reads, so
// they run in parallel and join before any decision is made.
func (p *Planner) fetchBusy(ctx context.Context, room Room, window interval.Interval) ([][]interval.Interval, error) {
	type fetch struct {
		idx       int
		intervals []interval.Interval
		err       error
	}

	results := make(chan fetch, len(room.CalendarIDs))
	var wg sync.WaitGroup
	for i, id := range room.CalendarIDs {
		wg.Add(1)
		go func(idx int, calendarID string) {
			defer wg.Done()
			busy, err := p.busy.FreeBusy(ctx, calendarID, window)
			results <- fetch{idx: idx, intervals: interval.Merge(busy), err: err}
		}(i, id)
	}
	wg.Wait()
	close(results)

	merged := make([][]interval.Interval, len(room.CalendarIDs))
	for r := range results {
		if r.err != nil {
			metrics.IncSourceFailure(room.Name)
			p.logger.Error().Err(r.err).
				Str("room", room.Name).
				Str("calendar_id", room.CalendarIDs[r.idx]).
				Msg("busy source fetch failed")
			return nil, fmt.Errorf("busy source %s: %w", room.CalendarIDs[r.idx], r.err)
		}
		merged[r.idx] = r.intervals
	}
	return merged, nil
}

func allFree(busyBySource [][]interval.Interval, window interval.Interval) bool {
	for _, busy := range busyBySource {
		for _, b := range busy {
			if b.Intersects(window) {
				return false
			}
		}
	}
	return true
}

// collectAlternatives computes the free sub-windows of the request per
// source, keeps those long enough to be a meaningful stay, and prices
// each with the occupancy of the original request. Unpriced candidates
// are kept, not dropped.
func (p *Planner) collectAlternatives(busyBySource [][]interval.Interval, window interval.Interval, stay pricing.Stay, table *tariff.Table) ([]Alternative, error) {
	// Intersect the free sets of all sources: a window is only offerable
	// if no source has a booking in it. Union the busy sets first, then
	// complement once.
	var allBusy []interval.Interval
	for _, busy := range busyBySource {
		allBusy = append(allBusy, busy...)
	}
	free := interval.Complement(interval.Merge(allBusy), window)
	free = interval.FilterMinNights(free, p.policy.MinStayNights)

	alternatives := make([]Alternative, 0, len(free))
	for _, w := range free {
		candidate := stay
		candidate.Checkin = w.Start
		candidate.Checkout = w.End
		price, err := p.engine.Quote(table, candidate)
		if err != nil {
			return nil, err
		}
		if !price.Priced {
			p.logger.Debug().
				Str("window", w.String()).
				Str("uncovered", dates.FormatISO(price.UncoveredNight)).
				Msg("alternative window has no tariff coverage")
		}
		alternatives = append(alternatives, Alternative{Window: w, Price: price})
	}
	return alternatives, nil
}
