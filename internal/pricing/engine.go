// Package pricing computes the total cost of a stay from a tariff table
// and occupancy parameters. A stay is billed per night over
// [checkin, checkout); the checkout day itself is never billed.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"villabook/internal/dates"
	"villabook/internal/money"
	"villabook/internal/tariff"
)

// Fees holds the surcharge configuration. It is injected at construction
// so tests and deployments can vary it without touching globals.
type Fees struct {
	// ExtraAdultRate is charged per adult above two, per night.
	ExtraAdultRate money.Cents
	// PetFee is a one-time charge when the stay includes pets.
	PetFee money.Cents
	// CleaningFee is a one-time charge applied to every stay.
	CleaningFee money.Cents
}

// Stay describes a requested booking window and its occupancy.
type Stay struct {
	Checkin  time.Time
	Checkout time.Time
	Adults   int
	Children int
	HasPets  bool
}

// Nights returns the stay length in nights.
func (s Stay) Nights() int {
	return dates.DaysBetween(s.Checkin, s.Checkout)
}

// Validate rejects inverted or empty windows and impossible occupancy.
func (s Stay) Validate() error {
	if !dates.Truncate(s.Checkin).Before(dates.Truncate(s.Checkout)) {
		return fmt.Errorf("checkout %s must be after checkin %s",
			dates.FormatISO(s.Checkout), dates.FormatISO(s.Checkin))
	}
	if s.Adults < 1 {
		return fmt.Errorf("at least one adult is required")
	}
	if s.Children < 0 {
		return fmt.Errorf("children must not be negative")
	}
	return nil
}

// Result is the outcome of a quote: either a priced total or an
// explanation of why no total exists. Callers must check Priced rather
// than match on a sentinel value.
type Result struct {
	Priced bool
	Total  money.Cents
	// UncoveredNight is the first night with no tariff coverage when
	// Priced is false.
	UncoveredNight time.Time
}

// Engine prices stays against tariff tables.
type Engine struct {
	fees Fees
}

// NewEngine creates an engine with the given fee configuration.
func NewEngine(fees Fees) *Engine {
	return &Engine{fees: fees}
}

// Quote computes the total for a stay. Every night in [checkin, checkout)
// must be covered by the table; if any night is not, the whole quote is
// unpriced and no partial total is returned.
//
// The extra-adult surcharge is applied per night, matching the current
// production rule (an older code path charged it once per stay).
func (e *Engine) Quote(table *tariff.Table, stay Stay) (Result, error) {
	if err := stay.Validate(); err != nil {
		return Result{}, err
	}

	var subtotal money.Cents
	checkout := dates.Truncate(stay.Checkout)
	for d := dates.Truncate(stay.Checkin); d.Before(checkout); d = dates.AddDays(d, 1) {
		rate, ok := table.RateOn(d)
		if !ok {
			return Result{UncoveredNight: d}, nil
		}
		subtotal += rate
	}

	nights := stay.Nights()
	if extra := stay.Adults - 2; extra > 0 {
		subtotal += e.fees.ExtraAdultRate * money.Cents(extra) * money.Cents(nights)
	}
	if stay.HasPets {
		subtotal += e.fees.PetFee
	}
	subtotal += e.fees.CleaningFee

	return Result{Priced: true, Total: subtotal}, nil
}

// ParsePets normalizes the pets form field. The booking form arrives in
// Italian or English, so the yes/si/sì variants all mean pets.
func ParsePets(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "si", "sì":
		return true
	}
	return false
}
