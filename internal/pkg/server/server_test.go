package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/pkg/performance"
	"github.com/Vodeneev/scratchiq/internal/pkg/scheduler"
	"github.com/Vodeneev/scratchiq/internal/pkg/storage"
	"github.com/Vodeneev/scratchiq/internal/scraper/orchestrator"
	_ "github.com/Vodeneev/scratchiq/internal/scraper/scrapers/all"
)

type fakeTrigger struct {
	got    []models.Jurisdiction
	called bool
	err    error
	ctxErr error
	last   *orchestrator.CycleResult
}

func (f *fakeTrigger) LastResult() (orchestrator.CycleResult, bool) {
	if f.last == nil {
		return orchestrator.CycleResult{}, false
	}
	return *f.last, true
}

func (f *fakeTrigger) Run(ctx context.Context, js []models.Jurisdiction) (orchestrator.CycleResult, error) {
	f.called = true
	f.got = js
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return orchestrator.CycleResult{}, f.err
	}
	res := orchestrator.CycleResult{ID: "c1", StartedAt: time.Unix(0, 0).UTC(), FinishedAt: time.Unix(5, 0).UTC()}
	for _, j := range js {
		res.PerJurisdiction = append(res.PerJurisdiction, orchestrator.JurisdictionResult{Jurisdiction: j, GamesScraped: 3})
	}
	return res, nil
}

type fakeGames struct {
	filter storage.GameFilter
	games  []models.GameRecord
	err    error
}

func (f *fakeGames) ListGames(_ context.Context, filter storage.GameFilter) ([]models.GameRecord, error) {
	f.filter = filter
	return f.games, f.err
}

func (f *fakeGames) GetGame(_ context.Context, j models.Jurisdiction, id string) (*models.GameRecord, error) {
	for _, g := range f.games {
		if g.Jurisdiction == j && g.ExternalID == id {
			return &g, nil
		}
	}
	return nil, storage.ErrNotFound
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleScrape(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(Config{}, trigger, nil, performance.NewTracker())

	rec := do(t, s.Handler(), http.MethodPost, "/api/admin/scrape?jurisdiction=NC,pa")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff([]models.Jurisdiction{"nc", "pa"}, trigger.got); diff != "" {
		t.Errorf("jurisdictions mismatch (-want +got):\n%s", diff)
	}

	var got orchestrator.CycleResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "c1" || got.TotalGames() != 6 {
		t.Errorf("response = %+v", got)
	}
}

func TestHandleScrape_AllJurisdictions(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(Config{}, trigger, nil, performance.NewTracker())

	rec := do(t, s.Handler(), http.MethodPost, "/api/admin/scrape")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if trigger.got != nil {
		t.Errorf("jurisdictions = %v, want nil (all)", trigger.got)
	}
}

func TestHandleScrape_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
		called bool
	}{
		{"busy", "/api/admin/scrape", scheduler.ErrBusy, http.StatusConflict, true},
		{"unknown jurisdiction", "/api/admin/scrape?jurisdiction=zz", nil, http.StatusBadRequest, false},
		{"internal", "/api/admin/scrape", errors.New("boom"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &fakeTrigger{err: tt.err}
			s := New(Config{}, trigger, nil, performance.NewTracker())

			rec := do(t, s.Handler(), http.MethodPost, tt.target)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if trigger.called != tt.called {
				t.Errorf("trigger called = %v, want %v", trigger.called, tt.called)
			}
		})
	}
}

func TestHandleScrape_MethodNotAllowed(t *testing.T) {
	s := New(Config{}, &fakeTrigger{}, nil, performance.NewTracker())
	if rec := do(t, s.Handler(), http.MethodGet, "/api/admin/scrape"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestHandleJurisdictions(t *testing.T) {
	s := New(Config{}, &fakeTrigger{}, nil, performance.NewTracker())

	rec := do(t, s.Handler(), http.MethodGet, "/api/jurisdictions")
	var body struct {
		Jurisdictions []struct {
			Jurisdiction string `json:"jurisdiction"`
		} `json:"jurisdictions"`
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	var codes []string
	for _, j := range body.Jurisdictions {
		codes = append(codes, j.Jurisdiction)
	}
	if diff := cmp.Diff([]string{"md", "nc", "pa"}, codes); diff != "" {
		t.Errorf("jurisdictions mismatch (-want +got):\n%s", diff)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	tracker := performance.NewTracker()
	tracker.RecordRun("nc", 12, time.Second, nil)
	s := New(Config{}, &fakeTrigger{}, nil, tracker)

	if rec := do(t, s.Handler(), http.MethodGet, "/ping"); rec.Body.String() != "pong\n" {
		t.Errorf("/ping = %q", rec.Body.String())
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	rec := do(t, s.Handler(), http.MethodGet, "/metrics")
	var m performance.MetricsResponse
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatal(err)
	}
	if m.Overall.TotalGames != 12 || m.Jurisdictions["nc"].Runs != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestHandleLastCycle(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(Config{}, trigger, nil, performance.NewTracker())

	if rec := do(t, s.Handler(), http.MethodGet, "/api/admin/last-cycle"); rec.Code != http.StatusNotFound {
		t.Errorf("status before any cycle = %d, want 404", rec.Code)
	}

	trigger.last = &orchestrator.CycleResult{
		ID: "c7",
		PerJurisdiction: []orchestrator.JurisdictionResult{
			{Jurisdiction: models.JurisdictionPA, GamesScraped: 41},
		},
	}
	rec := do(t, s.Handler(), http.MethodGet, "/api/admin/last-cycle")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got orchestrator.CycleResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "c7" || got.TotalGames() != 41 {
		t.Errorf("last cycle = %+v", got)
	}
}

func TestGameRoutes(t *testing.T) {
	games := &fakeGames{games: []models.GameRecord{
		{GameListing: models.GameListing{ExternalID: "101", Name: "Cash Blast", Price: 5}, Jurisdiction: "nc", IsHot: true},
	}}
	s := New(Config{}, &fakeTrigger{}, games, performance.NewTracker())
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/games/NC?minPrice=2&maxPrice=10&hotOnly=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	want := storage.GameFilter{Jurisdiction: "nc", MinPrice: 2, MaxPrice: 10, HotOnly: true}
	if diff := cmp.Diff(want, games.filter); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}

	do(t, h, http.MethodGet, "/api/hot/nc")
	if games.filter.Limit != DefaultHotLimit || !games.filter.HotOnly {
		t.Errorf("hot filter = %+v", games.filter)
	}

	if rec := do(t, h, http.MethodGet, "/api/games/nc/101"); rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/games/nc/999"); rec.Code != http.StatusNotFound {
		t.Errorf("missing game status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/games/tx"); rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported jurisdiction status = %d, want 400", rec.Code)
	}

	games.err = errors.New("db down")
	if rec := do(t, h, http.MethodGet, "/api/games/nc"); rec.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", rec.Code)
	}
}

func TestGameRoutesNotMountedWithoutStore(t *testing.T) {
	s := New(Config{}, &fakeTrigger{}, nil, performance.NewTracker())
	if rec := do(t, s.Handler(), http.MethodGet, "/api/games/nc"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
