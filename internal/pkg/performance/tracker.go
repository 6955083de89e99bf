package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// maxRecentRuns bounds the run history kept for /metrics
const maxRecentRuns = 100

// Tracker tracks scrape statistics per jurisdiction
type Tracker struct {
	mu sync.RWMutex

	// Overall metrics
	TotalCycles   int
	TotalRuns     int
	TotalGames    int
	TotalFailures int
	TotalDuration time.Duration

	// Ingestion metrics
	IngestDuration time.Duration
	IngestFailures int

	Jurisdictions map[string]*JurisdictionStats
	RecentRuns    []RunRecord
}

// JurisdictionStats aggregates runs of a single jurisdiction
type JurisdictionStats struct {
	Runs          int
	Failures      int
	EmptyRuns     int
	Games         int
	TotalDuration time.Duration
	LastRun       time.Time
	LastGames     int
	LastError     string
}

// RunRecord is one jurisdiction scrape
type RunRecord struct {
	Jurisdiction string
	Games        int
	Duration     time.Duration
	Success      bool
	Error        string
	Timestamp    time.Time
}

var globalTracker = NewTracker()

// GetTracker returns the global performance tracker
func GetTracker() *Tracker {
	return globalTracker
}

func NewTracker() *Tracker {
	return &Tracker{
		Jurisdictions: make(map[string]*JurisdictionStats),
		RecentRuns:    make([]RunRecord, 0, maxRecentRuns),
	}
}

// Reset resets all metrics
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.TotalCycles = 0
	t.TotalRuns = 0
	t.TotalGames = 0
	t.TotalFailures = 0
	t.TotalDuration = 0
	t.IngestDuration = 0
	t.IngestFailures = 0
	t.Jurisdictions = make(map[string]*JurisdictionStats)
	t.RecentRuns = t.RecentRuns[:0]
}

// RecordCycle counts a completed scrape cycle
func (t *Tracker) RecordCycle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TotalCycles++
}

// RecordRun records one jurisdiction scrape. err is nil for successful and empty runs.
func (t *Tracker) RecordRun(jurisdiction string, games int, duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}

	t.TotalRuns++
	t.TotalGames += games
	t.TotalDuration += duration

	stats, ok := t.Jurisdictions[jurisdiction]
	if !ok {
		stats = &JurisdictionStats{}
		t.Jurisdictions[jurisdiction] = stats
	}
	stats.Runs++
	stats.Games += games
	stats.TotalDuration += duration
	stats.LastRun = now
	stats.LastGames = games
	stats.LastError = errStr

	switch {
	case err != nil:
		t.TotalFailures++
		stats.Failures++
	case games == 0:
		stats.EmptyRuns++
	}

	if len(t.RecentRuns) == maxRecentRuns {
		copy(t.RecentRuns, t.RecentRuns[1:])
		t.RecentRuns = t.RecentRuns[:maxRecentRuns-1]
	}
	t.RecentRuns = append(t.RecentRuns, RunRecord{
		Jurisdiction: jurisdiction,
		Games:        games,
		Duration:     duration,
		Success:      err == nil,
		Error:        errStr,
		Timestamp:    now,
	})
}

// RecordIngest records the time spent handing one batch to storage
func (t *Tracker) RecordIngest(duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.IngestDuration += duration
	if err != nil {
		t.IngestFailures++
	}
}

// PrintSummary logs a performance summary
func (t *Tracker) PrintSummary() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.TotalRuns == 0 {
		slog.Info("No performance data collected yet")
		return
	}

	slog.Info("PERFORMANCE SUMMARY")
	slog.Info("Overall Statistics",
		"total_cycles", t.TotalCycles,
		"total_runs", t.TotalRuns,
		"total_games", t.TotalGames,
		"avg_games_per_run", float64(t.TotalGames)/float64(t.TotalRuns),
		"failures", t.TotalFailures,
		"avg_run_time", t.TotalDuration/time.Duration(t.TotalRuns),
		"ingest_time", t.IngestDuration,
		"ingest_failures", t.IngestFailures)

	for _, name := range t.sortedJurisdictions() {
		s := t.Jurisdictions[name]
		slog.Info("Jurisdiction",
			"jurisdiction", name,
			"runs", s.Runs,
			"failures", s.Failures,
			"empty_runs", s.EmptyRuns,
			"games", s.Games,
			"avg_run_time", s.TotalDuration/time.Duration(s.Runs),
			"last_games", s.LastGames,
			"last_error", s.LastError)
	}
}

func (t *Tracker) sortedJurisdictions() []string {
	names := make([]string, 0, len(t.Jurisdictions))
	for name := range t.Jurisdictions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetricsResponse represents the JSON response structure for /metrics endpoint
type MetricsResponse struct {
	Overall struct {
		TotalCycles    int     `json:"total_cycles"`
		TotalRuns      int     `json:"total_runs"`
		TotalGames     int     `json:"total_games"`
		TotalFailures  int     `json:"total_failures"`
		SuccessRate    float64 `json:"success_rate"`
		AvgRunTime     string  `json:"avg_run_time"`
		IngestDuration string  `json:"ingest_duration"`
		IngestFailures int     `json:"ingest_failures"`
	} `json:"overall"`

	Jurisdictions map[string]JurisdictionMetrics `json:"jurisdictions"`

	RecentRuns []struct {
		Jurisdiction string    `json:"jurisdiction"`
		Games        int       `json:"games"`
		Duration     string    `json:"duration"`
		Success      bool      `json:"success"`
		Error        string    `json:"error,omitempty"`
		Timestamp    time.Time `json:"timestamp"`
	} `json:"recent_runs"`
}

type JurisdictionMetrics struct {
	Runs       int        `json:"runs"`
	Failures   int        `json:"failures"`
	EmptyRuns  int        `json:"empty_runs"`
	Games      int        `json:"games"`
	AvgRunTime string     `json:"avg_run_time"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastGames  int        `json:"last_games"`
	LastError  string     `json:"last_error,omitempty"`
}

// GetMetrics returns structured metrics for JSON API
func (t *Tracker) GetMetrics() MetricsResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var resp MetricsResponse

	resp.Overall.TotalCycles = t.TotalCycles
	resp.Overall.TotalRuns = t.TotalRuns
	resp.Overall.TotalGames = t.TotalGames
	resp.Overall.TotalFailures = t.TotalFailures
	resp.Overall.IngestDuration = t.IngestDuration.String()
	resp.Overall.IngestFailures = t.IngestFailures
	if t.TotalRuns > 0 {
		resp.Overall.SuccessRate = float64(t.TotalRuns-t.TotalFailures) / float64(t.TotalRuns) * 100
		resp.Overall.AvgRunTime = (t.TotalDuration / time.Duration(t.TotalRuns)).String()
	}

	resp.Jurisdictions = make(map[string]JurisdictionMetrics, len(t.Jurisdictions))
	for name, s := range t.Jurisdictions {
		m := JurisdictionMetrics{
			Runs:      s.Runs,
			Failures:  s.Failures,
			EmptyRuns: s.EmptyRuns,
			Games:     s.Games,
			LastGames: s.LastGames,
			LastError: s.LastError,
		}
		if s.Runs > 0 {
			m.AvgRunTime = (s.TotalDuration / time.Duration(s.Runs)).String()
		}
		if !s.LastRun.IsZero() {
			last := s.LastRun
			m.LastRun = &last
		}
		resp.Jurisdictions[name] = m
	}

	for _, r := range t.RecentRuns {
		resp.RecentRuns = append(resp.RecentRuns, struct {
			Jurisdiction string    `json:"jurisdiction"`
			Games        int       `json:"games"`
			Duration     string    `json:"duration"`
			Success      bool      `json:"success"`
			Error        string    `json:"error,omitempty"`
			Timestamp    time.Time `json:"timestamp"`
		}{
			Jurisdiction: r.Jurisdiction,
			Games:        r.Games,
			Duration:     r.Duration.String(),
			Success:      r.Success,
			Error:        r.Error,
			Timestamp:    r.Timestamp,
		})
	}

	return resp
}
