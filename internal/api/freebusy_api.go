package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"villabook/internal/availability"
	"villabook/internal/dates"
	"villabook/internal/metrics"
	"villabook/internal/pricing"
)

var errRequired = errors.New("time_min and time_max are required")

// FreeBusyRequest is the request body for POST /api/freebusy.
type FreeBusyRequest struct {
	Rooms    []string `json:"rooms,omitempty"` // default: all configured rooms
	TimeMin  string   `json:"time_min"`        // Format: YYYY-MM-DD
	TimeMax  string   `json:"time_max"`        // Format: YYYY-MM-DD
	Adults   int      `json:"adults"`
	Children int      `json:"children"`
	Pets     string   `json:"pets"` // yes/si/sì variants mean pets
}

// PriceInfo renders a pricing result: a fixed-point total, or a quote
// marker when a night is uncovered by the tariff table.
type PriceInfo struct {
	Total          string `json:"total,omitempty"`
	QuoteOnRequest bool   `json:"quote_on_request,omitempty"`
}

// AlternativeInfo is one free window with its price.
type AlternativeInfo struct {
	Start string    `json:"start"` // Format: YYYY-MM-DD
	End   string    `json:"end"`
	Price PriceInfo `json:"price"`
}

// RoomReport is the availability answer for one room.
type RoomReport struct {
	Room         string            `json:"room"`
	Outcome      string            `json:"outcome"`
	Price        *PriceInfo        `json:"price,omitempty"`
	Alternatives []AlternativeInfo `json:"alternatives,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// FreeBusyResponse is the response for POST /api/freebusy.
type FreeBusyResponse struct {
	Reports []RoomReport `json:"reports"`
	Period  struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
}

// handleFreeBusy answers availability queries from the booking form.
// POST /api/freebusy
func (s *HTTPServer) handleFreeBusy(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("freebusy")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req FreeBusyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	stay, err := s.parseStay(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	names := req.Rooms
	if len(names) == 0 {
		for _, room := range s.rooms {
			names = append(names, room.Name)
		}
	}

	response := FreeBusyResponse{Reports: make([]RoomReport, 0, len(names))}
	response.Period.Start = dates.FormatISO(stay.Checkin)
	response.Period.End = dates.FormatISO(stay.Checkout)

	for _, name := range names {
		room, ok := s.roomByName(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown room: "+name)
			return
		}

		report, err := s.planner.CheckRoom(r.Context(), availability.Room{
			Name:        room.Name,
			CalendarIDs: room.CalendarIDs,
		}, stay)
		if err != nil {
			// A failed source makes this room's answer indeterminate;
			// report the failure instead of a partial result.
			s.log.Error().Err(err).Str("room", name).Msg("availability query failed")
			response.Reports = append(response.Reports, RoomReport{
				Room:  name,
				Error: "availability query failed",
			})
			continue
		}
		response.Reports = append(response.Reports, toRoomReport(report))
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) parseStay(req *FreeBusyRequest) (pricing.Stay, error) {
	if req.TimeMin == "" || req.TimeMax == "" {
		return pricing.Stay{}, errRequired
	}
	checkin, err := dates.Parse(req.TimeMin)
	if err != nil {
		return pricing.Stay{}, err
	}
	checkout, err := dates.Parse(req.TimeMax)
	if err != nil {
		return pricing.Stay{}, err
	}

	adults := req.Adults
	if adults == 0 {
		adults = 1
	}

	stay := pricing.Stay{
		Checkin:  checkin,
		Checkout: checkout,
		Adults:   adults,
		Children: req.Children,
		HasPets:  pricing.ParsePets(req.Pets),
	}
	return stay, stay.Validate()
}

func toRoomReport(report availability.Report) RoomReport {
	out := RoomReport{
		Room:    report.Room,
		Outcome: string(report.Outcome),
	}
	if report.Outcome == availability.FullyAvailable {
		price := toPriceInfo(report.Price)
		out.Price = &price
	}
	for _, alt := range report.Alternatives {
		out.Alternatives = append(out.Alternatives, AlternativeInfo{
			Start: dates.FormatISO(alt.Window.Start),
			End:   dates.FormatISO(alt.Window.End),
			Price: toPriceInfo(alt.Price),
		})
	}
	return out
}

func toPriceInfo(result pricing.Result) PriceInfo {
	if !result.Priced {
		metrics.IncQuote("unpriced")
		return PriceInfo{QuoteOnRequest: true}
	}
	metrics.IncQuote("priced")
	return PriceInfo{Total: result.Total.String()}
}
