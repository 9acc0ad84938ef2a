package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/condor-legion/condor-stats/internal/config"
	"github.com/condor-legion/condor-stats/internal/constants"
	"github.com/condor-legion/condor-stats/internal/domain"
	"github.com/condor-legion/condor-stats/internal/stats"
)

// StatsService orchestrates the aggregation engine over the data source for
// each report type. It is stateless between requests; every report works
// from a fresh snapshot read.
type StatsService struct {
	src    stats.DataSource
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

func NewStatsService(src stats.DataSource, cfg *config.Config, logger zerolog.Logger) *StatsService {
	return &StatsService{src: src, cfg: cfg, logger: logger, now: time.Now}
}

// LeaderboardQuery selects a leaderboard variant.
type LeaderboardQuery struct {
	Metric string
	Window stats.WindowQuery
	Limit  int
	Condor bool
}

func (s *StatsService) Leaderboard(ctx context.Context, q LeaderboardQuery) (*domain.LeaderboardReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	metric, err := stats.ParseMetric(q.Metric)
	if err != nil {
		return nil, err
	}
	window, err := stats.ResolveWindow(s.now(), q.Window)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.cfg.LeaderboardLimit
	}

	s.logger.Info().
		Str("metric", string(metric)).
		Bool("condor", q.Condor).
		Int("limit", limit).
		Msg("building leaderboard")

	members, err := s.src.FetchMembers(ctx, stats.MemberFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	accums, err := stats.AggregateMembers(ctx, s.src, members, stats.AggregateOptions{
		Window:          window,
		LastEvents:      q.Window.Events,
		ExcludePractice: true,
		CondorOnly:      q.Condor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate members: %w", err)
	}

	entries, err := stats.Rank(members, accums, metric, limit)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("metric", string(metric)).
		Int("entries", len(entries)).
		Msg("leaderboard built")

	return &domain.LeaderboardReport{
		Metric:  string(metric),
		Entries: entries,
		Week:    window.Week,
	}, nil
}

func (s *StatsService) RankCard(ctx context.Context, memberID int64, wq stats.WindowQuery) (*domain.RankCard, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	window, err := stats.ResolveWindow(s.now(), wq)
	if err != nil {
		return nil, err
	}

	members, err := s.src.FetchMembers(ctx, stats.MemberFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	var member *domain.Member
	for i := range members {
		if members[i].ID == memberID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return nil, &stats.ValidationError{Field: "member", Reason: fmt.Sprintf("unknown member id %d", memberID)}
	}

	accums, err := stats.AggregateMembers(ctx, s.src, members, stats.AggregateOptions{
		Window:          window,
		LastEvents:      wq.Events,
		ExcludePractice: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate members: %w", err)
	}

	acc := accums[memberID]
	card := &domain.RankCard{
		MemberID:         member.ID,
		DisplayName:      member.DisplayName,
		Matches:          acc.Matches(),
		QualifiedMatches: acc.QualifiedMatches(),
		Kills:            acc.Kills,
		Deaths:           acc.Deaths,
		Score:            acc.Score,
		Combat:           acc.Combat,
		Offense:          acc.Offense,
		Defense:          acc.Defense,
		Support:          acc.Support,
		KDR:              acc.AvgKDR(),
		KillsPerMin:      acc.AvgKPM(),
		DeathsPerMin:     acc.AvgDPM(),
		Ascenso:          acc.Ascenso,
		KillsPosition:    stats.Position(members, accums, stats.MetricKills, memberID),
		ScorePosition:    stats.Position(members, accums, stats.MetricScore, memberID),
		KDRPosition:      stats.Position(members, accums, stats.MetricKDR, memberID),
		Week:             window.Week,
	}

	s.logger.Debug().
		Int64("member_id", memberID).
		Int("matches", card.Matches).
		Msg("rank card built")

	return card, nil
}

// Gulag evaluates inactivity over the active roster. A negative threshold
// means "use the configured default"; zero is a real threshold that flags
// every member with a measurable baseline.
func (s *StatsService) Gulag(ctx context.Context, thresholdDays int) (*domain.GulagReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if thresholdDays < 0 {
		thresholdDays = s.cfg.GulagThresholdDays
	}

	members, err := s.src.FetchMembers(ctx, stats.MemberFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	rows, err := stats.EvaluateInactivity(ctx, s.src, members, s.now(), thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate inactivity: %w", err)
	}

	flagged := 0
	for _, r := range rows {
		if r.InGulag {
			flagged++
		}
	}
	s.logger.Info().
		Int("members", len(rows)).
		Int("flagged", flagged).
		Int("threshold_days", thresholdDays).
		Msg("gulag report built")

	return &domain.GulagReport{ThresholdDays: thresholdDays, Rows: rows}, nil
}

func (s *StatsService) MembersReport(ctx context.Context) ([]domain.MembersReportRow, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	members, err := s.src.FetchMembers(ctx, stats.MemberFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	accums, err := stats.AggregateMembers(ctx, s.src, members, stats.AggregateOptions{
		ExcludePractice: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate members: %w", err)
	}

	now := s.now()
	rows := make([]domain.MembersReportRow, 0, len(members))
	for _, m := range members {
		acc := accums[m.ID]
		row := domain.MembersReportRow{
			MemberID:     m.ID,
			DisplayName:  m.DisplayName,
			DiscordID:    m.DiscordID,
			Active:       m.Active,
			JoinedAt:     m.JoinedAt,
			LastPlayedAt: acc.LastPlayedAt(),
			Matches:      acc.Matches(),
			Kills:        acc.Kills,
			Deaths:       acc.Deaths,
			Score:        acc.Score,
			KDR:          acc.AvgKDR(),
			KillsPerMin:  acc.AvgKPM(),
		}
		if m.JoinedAt != nil {
			row.TenureDays = int(now.Sub(*m.JoinedAt) / (24 * time.Hour))
		}
		rows = append(rows, row)
	}

	s.logger.Info().Int("members", len(rows)).Msg("members report built")
	return rows, nil
}

func (s *StatsService) WeeklyScore(ctx context.Context, weekOffset int) (*domain.WeeklyScoreReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	window, err := stats.ResolveWindow(s.now(), stats.WindowQuery{
		Period:     stats.PeriodWeek,
		WeekOffset: weekOffset,
	})
	if err != nil {
		return nil, err
	}

	members, err := s.src.FetchMembers(ctx, stats.MemberFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	accums, err := stats.AggregateMembers(ctx, s.src, members, stats.AggregateOptions{
		Window:          window,
		ExcludePractice: true,
		CondorOnly:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate members: %w", err)
	}

	rows := make([]domain.WeeklyScoreRow, 0, len(members))
	for _, m := range members {
		acc := accums[m.ID]
		if acc.Matches() == 0 {
			continue
		}
		rows = append(rows, domain.WeeklyScoreRow{
			MemberID:         m.ID,
			DisplayName:      m.DisplayName,
			QualifiedMatches: acc.QualifiedMatches(),
			Ascenso:          acc.Ascenso,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Ascenso == rows[j].Ascenso {
			return rows[i].DisplayName < rows[j].DisplayName
		}
		return rows[i].Ascenso > rows[j].Ascenso
	})

	s.logger.Info().
		Int("week", window.Week.Number).
		Int("year", window.Week.Year).
		Int("members", len(rows)).
		Msg("weekly score built")

	return &domain.WeeklyScoreReport{Week: *window.Week, Rows: rows}, nil
}
