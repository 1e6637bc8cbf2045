package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/availability"
	"villabook/internal/config"
	"villabook/internal/interval"
	"villabook/internal/pricing"
	"villabook/internal/tariff"
)

type stubSource struct {
	busy map[string][]interval.Interval
	err  error
}

func (s *stubSource) FreeBusy(_ context.Context, calendarID string, _ interval.Interval) ([]interval.Interval, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.busy[calendarID], nil
}

// stubStore keeps tariff rows in memory and validates on replace, the
// same contract the CSV and sqlite backends honor.
type stubStore struct {
	rows map[string][]tariff.Row
}

func (s *stubStore) TariffTable(_ context.Context, room string) (*tariff.Table, error) {
	return tariff.FromRows(s.rows[room])
}

func (s *stubStore) Rows(_ context.Context, room string) ([]tariff.Row, error) {
	return s.rows[room], nil
}

func (s *stubStore) ReplaceRows(_ context.Context, room string, rows []tariff.Row) error {
	if _, err := tariff.FromRows(rows); err != nil {
		return err
	}
	s.rows[room] = rows
	return nil
}

func newTestServer(t *testing.T, src availability.BusySource) (*HTTPServer, *stubStore) {
	t.Helper()

	store := &stubStore{rows: map[string][]tariff.Row{
		"garden": {{Start: "01/01/2024", End: "31/12/2024", Rate: "100,00"}},
	}}
	engine := pricing.NewEngine(pricing.Fees{ExtraAdultRate: 5000, PetFee: 1500, CleaningFee: 2500})
	planner := availability.NewPlanner(src, store, engine, availability.Policy{}, zerolog.Nop()).
		WithNow(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })

	rooms := []config.Room{{Name: "garden", CalendarIDs: []string{"cal-a"}}}
	return New(planner, store, rooms, 100, 100, zerolog.Nop()), store
}

func postFreeBusy(t *testing.T, srv *HTTPServer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/freebusy", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFreeBusyFullyAvailable(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	rec := postFreeBusy(t, srv, `{"time_min":"2024-01-10","time_max":"2024-01-13","adults":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var resp FreeBusyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 1)

	report := resp.Reports[0]
	assert.Equal(t, "garden", report.Room)
	assert.Equal(t, "fully_available", report.Outcome)
	require.NotNil(t, report.Price)
	assert.Equal(t, "325.00", report.Price.Total) // 3 nights at 100 + cleaning
	assert.Equal(t, "2024-01-10", resp.Period.Start)
	assert.Equal(t, "2024-01-13", resp.Period.End)
}

func TestFreeBusyAlternatives(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{busy: map[string][]interval.Interval{
		"cal-a": {{
			Start: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}},
	}})

	rec := postFreeBusy(t, srv, `{"time_min":"2024-01-10","time_max":"2024-01-20"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FreeBusyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 1)

	report := resp.Reports[0]
	assert.Equal(t, "partially_available", report.Outcome)
	assert.Nil(t, report.Price)
	require.Len(t, report.Alternatives, 2)
	assert.Equal(t, "2024-01-10", report.Alternatives[0].Start)
	assert.Equal(t, "2024-01-12", report.Alternatives[0].End)
	assert.Equal(t, "2024-01-15", report.Alternatives[1].Start)
	assert.Equal(t, "2024-01-20", report.Alternatives[1].End)
	assert.Equal(t, "225.00", report.Alternatives[0].Price.Total)
}

func TestFreeBusyBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	tests := []struct {
		name string
		body string
	}{
		{"missing dates", `{"adults":2}`},
		{"bad date", `{"time_min":"not-a-date","time_max":"2024-01-13"}`},
		{"inverted window", `{"time_min":"2024-01-13","time_max":"2024-01-10"}`},
		{"unknown field", `{"time_min":"2024-01-10","time_max":"2024-01-13","surprise":1}`},
		{"unknown room", `{"rooms":["attic"],"time_min":"2024-01-10","time_max":"2024-01-13"}`},
		{"not json", `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postFreeBusy(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFreeBusyRequiresPost(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	req := httptest.NewRequest(http.MethodGet, "/api/freebusy", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFreeBusySourceFailureReported(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{err: assert.AnError})

	rec := postFreeBusy(t, srv, `{"time_min":"2024-01-10","time_max":"2024-01-13"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FreeBusyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "availability query failed", resp.Reports[0].Error)
	assert.Empty(t, resp.Reports[0].Outcome)
}

func TestTariffGet(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	req := httptest.NewRequest(http.MethodGet, "/api/tariffs/garden", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TariffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "garden", resp.Room)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "01/01/2024", resp.Rows[0].Start)
}

func TestTariffGetUnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	req := httptest.NewRequest(http.MethodGet, "/api/tariffs/attic", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTariffPutReplacesRows(t *testing.T) {
	srv, store := newTestServer(t, &stubSource{})

	body := `{"rows":[
		{"data_inizio":"01/01/2024","data_fine":"30/06/2024","costo":"90,00"},
		{"data_inizio":"01/07/2024","data_fine":"31/12/2024","costo":"130,00"}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/tariffs/garden", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.rows["garden"], 2)
	assert.Equal(t, "90,00", store.rows["garden"][0].Rate)
}

func TestTariffPutRejectsGapWithDetail(t *testing.T) {
	srv, store := newTestServer(t, &stubSource{})

	// 02/03 is uncovered between the two rows.
	body := `{"rows":[
		{"data_inizio":"01/01/2024","data_fine":"01/03/2024","costo":"90,00"},
		{"data_inizio":"03/03/2024","data_fine":"31/12/2024","costo":"130,00"}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/tariffs/garden", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error  string           `json:"error"`
		Detail ValidationDetail `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gap", resp.Detail.Kind)
	assert.Equal(t, "2024-03-02", resp.Detail.Before)
	assert.Equal(t, "2024-03-03", resp.Detail.After)

	// The previous table survives a rejected replacement.
	require.Len(t, store.rows["garden"], 1)
}

func TestTariffPutRejectsOverlapWithDetail(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})

	body := `{"rows":[
		{"data_inizio":"01/01/2024","data_fine":"01/03/2024","costo":"90,00"},
		{"data_inizio":"01/03/2024","data_fine":"31/12/2024","costo":"130,00"}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/tariffs/garden", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Detail ValidationDetail `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "overlap", resp.Detail.Kind)
}

func TestTariffPutRejectsEmptyRows(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	req := httptest.NewRequest(http.MethodPut, "/api/tariffs/garden", strings.NewReader(`{"rows":[]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTariffExport(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{})
	req := httptest.NewRequest(http.MethodGet, "/api/tariffs/garden/export", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "garden_tariffs.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestRateLimit(t *testing.T) {
	store := &stubStore{rows: map[string][]tariff.Row{}}
	engine := pricing.NewEngine(pricing.Fees{})
	planner := availability.NewPlanner(&stubSource{}, store, engine, availability.Policy{}, zerolog.Nop())
	srv := New(planner, store, nil, 1, 1, zerolog.Nop())

	handler := srv.Handler()
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
