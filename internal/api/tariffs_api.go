package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"villabook/internal/dates"
	"villabook/internal/export"
	"villabook/internal/metrics"
	"villabook/internal/tariff"
)

// TariffRow is one legacy tariff record as the manager edits it: both
// boundary dates are priced nights.
type TariffRow struct {
	Start string `json:"data_inizio"`
	End   string `json:"data_fine"`
	Rate  string `json:"costo"`
}

// TariffResponse is the response for GET /api/tariffs/{room}.
type TariffResponse struct {
	Room string      `json:"room"`
	Rows []TariffRow `json:"rows"`
}

// ValidationDetail names the offending boundaries of a rejected table.
type ValidationDetail struct {
	Kind   string `json:"kind"` // "gap" or "overlap"
	Before string `json:"before_end"`
	After  string `json:"after_start"`
}

// handleTariffs routes /api/tariffs/{room} and /api/tariffs/{room}/export.
func (s *HTTPServer) handleTariffs(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/tariffs/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || rest == r.URL.Path {
		writeError(w, http.StatusBadRequest, "room is required")
		return
	}

	room, tail, _ := strings.Cut(rest, "/")
	if _, ok := s.roomByName(room); !ok {
		writeError(w, http.StatusNotFound, "unknown room: "+room)
		return
	}

	switch {
	case tail == "export" && r.Method == http.MethodGet:
		s.handleTariffExport(w, r, room)
	case tail == "" && r.Method == http.MethodGet:
		s.handleTariffGet(w, r, room)
	case tail == "" && r.Method == http.MethodPut:
		s.handleTariffPut(w, r, room)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTariffGet returns the room's tariff rows.
// GET /api/tariffs/{room}
func (s *HTTPServer) handleTariffGet(w http.ResponseWriter, r *http.Request, room string) {
	metrics.IncHTTP("tariffs_get")

	rows, err := s.store.Rows(r.Context(), room)
	if err != nil {
		s.log.Error().Err(err).Str("room", room).Msg("failed to load tariff rows")
		writeError(w, http.StatusInternalServerError, "failed to load tariff table")
		return
	}

	resp := TariffResponse{Room: room, Rows: make([]TariffRow, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, TariffRow(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTariffPut replaces the room's tariff table. The new table must
// tile its span; gap or overlap violations are rejected with the two
// offending boundaries named so the manager can fix the data.
// PUT /api/tariffs/{room}
func (s *HTTPServer) handleTariffPut(w http.ResponseWriter, r *http.Request, room string) {
	metrics.IncHTTP("tariffs_put")

	var body struct {
		Rows []TariffRow `json:"rows"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "rows must not be empty")
		return
	}

	rows := make([]tariff.Row, 0, len(body.Rows))
	for _, row := range body.Rows {
		rows = append(rows, tariff.Row(row))
	}

	if err := s.store.ReplaceRows(r.Context(), room, rows); err != nil {
		if detail, ok := validationDetail(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  err.Error(),
				"detail": detail,
			})
			return
		}
		s.log.Error().Err(err).Str("room", room).Msg("failed to replace tariff table")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Info().Str("room", room).Int("rows", len(rows)).Msg("tariff table updated")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTariffExport streams the room's tariff table as an xlsx file.
// GET /api/tariffs/{room}/export
func (s *HTTPServer) handleTariffExport(w http.ResponseWriter, r *http.Request, room string) {
	metrics.IncHTTP("tariffs_export")

	table, err := s.store.TariffTable(r.Context(), room)
	if err != nil {
		s.log.Error().Err(err).Str("room", room).Msg("failed to load tariff table")
		writeError(w, http.StatusInternalServerError, "failed to load tariff table")
		return
	}

	writer := export.NewWriter()
	defer writer.Close()
	if err := writer.AddRoom(room, table); err != nil {
		s.log.Error().Err(err).Str("room", room).Msg("failed to build export")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", room+"_tariffs.xlsx"))
	if err := writer.Save(w); err != nil {
		s.log.Error().Err(err).Str("room", room).Msg("failed to write export")
	}
}

func validationDetail(err error) (ValidationDetail, bool) {
	var gap *tariff.GapError
	if errors.As(err, &gap) {
		return ValidationDetail{
			Kind:   "gap",
			Before: dates.FormatISO(gap.Before.End),
			After:  dates.FormatISO(gap.After.Start),
		}, true
	}
	var overlap *tariff.OverlapError
	if errors.As(err, &overlap) {
		return ValidationDetail{
			Kind:   "overlap",
			Before: dates.FormatISO(overlap.Before.End),
			After:  dates.FormatISO(overlap.After.Start),
		}, true
	}
	return ValidationDetail{}, false
}
