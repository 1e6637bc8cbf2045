package tariff

import (
	"fmt"

	"villabook/internal/dates"
	"villabook/internal/money"
)

// Row is one record of the legacy tariff source: a 3-column table with
// "data inizio", "data fine" and "costo". Dates use DD/MM/YYYY or
// DD/MM/YY; the rate uses '.' or ',' as the decimal separator. Both
// boundary days are priced nights (inclusive-inclusive).
type Row struct {
	Start string
	End   string
	Rate  string
}

// FromRows converts legacy rows into a validated table. The legacy "data
// fine" is the last priced night, so the half-open entry ends one day
// later. A row whose dates or rate fail to parse is an error, not a skip.
func FromRows(rows []Row) (*Table, error) {
	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		start, err := dates.Parse(row.Start)
		if err != nil {
			return nil, fmt.Errorf("row %d: start date: %w", i+1, err)
		}
		last, err := dates.Parse(row.End)
		if err != nil {
			return nil, fmt.Errorf("row %d: end date: %w", i+1, err)
		}
		if last.Before(start) {
			return nil, fmt.Errorf("row %d: end %s before start %s", i+1, row.End, row.Start)
		}
		rate, err := money.Parse(row.Rate)
		if err != nil {
			return nil, fmt.Errorf("row %d: rate: %w", i+1, err)
		}
		entries = append(entries, Entry{
			Start:       start,
			End:         dates.AddDays(last, 1),
			NightlyRate: rate,
		})
	}
	return Validate(entries)
}

// ToRows renders the table back into legacy rows, undoing the half-open
// conversion so round-tripping preserves the on-disk format.
func (t *Table) ToRows() []Row {
	rows := make([]Row, 0, len(t.Entries()))
	for _, e := range t.Entries() {
		rows = append(rows, Row{
			Start: dates.FormatLegacy(e.Start),
			End:   dates.FormatLegacy(dates.AddDays(e.End, -1)),
			Rate:  e.NightlyRate.String(),
		})
	}
	return rows
}
