package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/condor-legion/condor-stats/internal/domain"
	"github.com/condor-legion/condor-stats/internal/service"
	"github.com/condor-legion/condor-stats/internal/stats"
)

// StatsServer exposes the report types over JSON.
type StatsServer struct {
	statsSvc  *service.StatsService
	importSvc *service.ImportService
	logger    zerolog.Logger
}

func NewStatsServer(statsSvc *service.StatsService, importSvc *service.ImportService, logger zerolog.Logger) *StatsServer {
	return &StatsServer{statsSvc: statsSvc, importSvc: importSvc, logger: logger}
}

// Routes registers all handlers on a fresh mux.
func (s *StatsServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /v1/members/{id}/rank", s.handleRankCard)
	mux.HandleFunc("GET /v1/gulag", s.handleGulag)
	mux.HandleFunc("GET /v1/members/report", s.handleMembersReport)
	mux.HandleFunc("GET /v1/weekly", s.handleWeekly)
	mux.HandleFunc("POST /v1/imports", s.handleImport)
	return mux
}

func (s *StatsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func windowQueryFrom(r *http.Request) (stats.WindowQuery, error) {
	q := r.URL.Query()
	wq := stats.WindowQuery{Period: q.Get("period")}
	var err error
	if wq.Days, err = intParam(q.Get("days")); err != nil {
		return wq, &stats.ValidationError{Field: "days", Reason: "must be an integer"}
	}
	if wq.Events, err = intParam(q.Get("events")); err != nil {
		return wq, &stats.ValidationError{Field: "events", Reason: "must be an integer"}
	}
	if wq.WeekOffset, err = intParam(q.Get("weekOffset")); err != nil {
		return wq, &stats.ValidationError{Field: "weekOffset", Reason: "must be an integer"}
	}
	return wq, nil
}

func (s *StatsServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	wq, err := windowQueryFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, &stats.ValidationError{Field: "limit", Reason: "must be an integer"})
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = string(stats.MetricKills)
	}

	report, err := s.statsSvc.Leaderboard(r.Context(), service.LeaderboardQuery{
		Metric: metric,
		Window: wq,
		Limit:  limit,
		Condor: r.URL.Query().Get("condor") == "true",
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse(report))
}

func (s *StatsServer) handleRankCard(w http.ResponseWriter, r *http.Request) {
	memberID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, &stats.ValidationError{Field: "id", Reason: "must be an integer member id"})
		return
	}
	wq, err := windowQueryFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	card, err := s.statsSvc.RankCard(r.Context(), memberID, wq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *StatsServer) handleGulag(w http.ResponseWriter, r *http.Request) {
	// Absent means "configured default"; an explicit threshold=0 is kept.
	threshold := -1
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		var err error
		threshold, err = strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, &stats.ValidationError{Field: "threshold", Reason: "must be an integer"})
			return
		}
	}

	report, err := s.statsSvc.Gulag(r.Context(), threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *StatsServer) handleMembersReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.statsSvc.MembersReport(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": rows})
}

func (s *StatsServer) handleWeekly(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r.URL.Query().Get("offset"))
	if err != nil {
		s.writeError(w, &stats.ValidationError{Field: "offset", Reason: "must be an integer"})
		return
	}

	report, err := s.statsSvc.WeeklyScore(r.Context(), offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type importRowPayload struct {
	AccountID       string  `json:"account_id"`
	ProviderID      string  `json:"provider_id"`
	Kills           int     `json:"kills"`
	Deaths          int     `json:"deaths"`
	Score           int     `json:"score"`
	Combat          int     `json:"combat"`
	Offense         int     `json:"offense"`
	Defense         int     `json:"defense"`
	Support         int     `json:"support"`
	Teamkills       int     `json:"teamkills"`
	InfantryKills   int     `json:"infantry_kills"`
	KillStreak      int     `json:"kill_streak"`
	DeathStreak     int     `json:"death_streak"`
	KillsPerMinute  float64 `json:"kills_per_minute"`
	DeathsPerMinute float64 `json:"deaths_per_minute"`
	KillDeathRatio  float64 `json:"kill_death_ratio"`
}

type importPayload struct {
	ImportedAt    *time.Time         `json:"imported_at"`
	EventID       *int64             `json:"event_id"`
	PracticeEvent bool               `json:"practice_event"`
	Rows          []importRowPayload `json:"rows"`
}

func (s *StatsServer) handleImport(w http.ResponseWriter, r *http.Request) {
	var payload importPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, &stats.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	req := service.ImportRequest{
		EventID:       payload.EventID,
		PracticeEvent: payload.PracticeEvent,
	}
	if payload.ImportedAt != nil {
		req.ImportedAt = *payload.ImportedAt
	}
	for _, row := range payload.Rows {
		req.Rows = append(req.Rows, service.ImportRow(row))
	}

	importID, matchID, err := s.importSvc.Import(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"import_id": importID,
		"match_id":  matchID,
	})
}

func leaderboardResponse(report *domain.LeaderboardReport) map[string]any {
	resp := map[string]any{
		"metric":  report.Metric,
		"entries": report.Entries,
	}
	if report.Week != nil {
		resp["week_number"] = report.Week.Number
		resp["year"] = report.Week.Year
	}
	return resp
}

func (s *StatsServer) writeError(w http.ResponseWriter, err error) {
	var verr *stats.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Reason,
			"field": verr.Field,
		})
		return
	}
	s.logger.Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
