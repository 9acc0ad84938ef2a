package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condor-legion/condor-stats/internal/config"
	"github.com/condor-legion/condor-stats/internal/domain"
	"github.com/condor-legion/condor-stats/internal/stats"
)

type fakeSource struct {
	members []domain.Member
	rows    []domain.PlayerMatchStatRow
	records []domain.MatchRecord

	fetches int
}

func (f *fakeSource) FetchMembers(_ context.Context, filter stats.MemberFilter) ([]domain.Member, error) {
	f.fetches++
	if !filter.ActiveOnly {
		return f.members, nil
	}
	var out []domain.Member
	for _, m := range f.members {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchMatchStatRows(_ context.Context, _ stats.RowFilter) ([]domain.PlayerMatchStatRow, error) {
	f.fetches++
	return f.rows, nil
}

func (f *fakeSource) FetchMatchRecords(_ context.Context, _ stats.RecordFilter) ([]domain.MatchRecord, error) {
	f.fetches++
	return f.records, nil
}

var testNow = time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

func newTestService(src stats.DataSource) *StatsService {
	svc := NewStatsService(src, &config.Config{
		GulagThresholdDays: 30,
		LeaderboardLimit:   10,
	}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

// clanFixture is the end-to-end scenario: three members, one practice and
// one competitive match, a qualifying row for alpha and a non-qualifying
// row for bravo on the competitive match only.
func clanFixture() *fakeSource {
	joined := testNow.AddDate(0, 0, -90)
	return &fakeSource{
		members: []domain.Member{
			{
				ID: 1, DisplayName: "alpha", DiscordID: "alpha#1", Active: true,
				Accounts: []domain.GameAccount{{AccountID: "acc-a", MemberID: 1, ProviderID: "P-a"}},
			},
			{
				ID: 2, DisplayName: "bravo", DiscordID: "bravo#1", Active: true,
				Accounts: []domain.GameAccount{{AccountID: "acc-b", MemberID: 2, ProviderID: "P-b"}},
			},
			{
				ID: 3, DisplayName: "charlie", DiscordID: "charlie#1", Active: true,
				JoinedAt: &joined,
			},
		},
		records: []domain.MatchRecord{
			{ID: 1, ImportedAt: testNow.AddDate(0, 0, -3), EventID: int64Ptr(7), PracticeEvent: true},
			{ID: 2, ImportedAt: testNow.AddDate(0, 0, -1)},
		},
		rows: []domain.PlayerMatchStatRow{
			{
				MatchID: 2, ImportedAt: testNow.AddDate(0, 0, -1), AccountID: strPtr("acc-a"),
				Kills: 48, Deaths: 10, Score: 500, Combat: 150, Offense: 90,
				InfantryKills: 48, KillsPerMinute: 0.8, KillDeathRatio: 4.8,
			},
			{
				MatchID: 2, ImportedAt: testNow.AddDate(0, 0, -1), AccountID: strPtr("acc-b"),
				Kills: 12, Deaths: 15, Score: 200, Combat: 60, Offense: 20,
				InfantryKills: 12, KillsPerMinute: 0.2, KillDeathRatio: 0.8,
			},
		},
	}
}

func TestLeaderboard_CondorGate(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.Leaderboard(context.Background(), LeaderboardQuery{
		Metric: "kills",
		Condor: true,
	})
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "alpha", report.Entries[0].DisplayName)
	assert.Equal(t, 48, report.Entries[0].Kills)
	assert.InDelta(t, 48.0, report.Entries[0].Value, 1e-9)
}

func TestLeaderboard_UngatedIncludesBoth(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.Leaderboard(context.Background(), LeaderboardQuery{Metric: "kills"})
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "alpha", report.Entries[0].DisplayName)
	assert.Equal(t, "bravo", report.Entries[1].DisplayName)
}

func TestLeaderboard_WeekModeCarriesWeekInfo(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.Leaderboard(context.Background(), LeaderboardQuery{
		Metric: "score",
		Window: stats.WindowQuery{Period: stats.PeriodWeek},
	})
	require.NoError(t, err)
	require.NotNil(t, report.Week)
	assert.Equal(t, 11, report.Week.Number)
	assert.Equal(t, 2025, report.Week.Year)
}

func TestLeaderboard_RejectsConflictingSelectorsBeforeFetching(t *testing.T) {
	src := clanFixture()
	svc := newTestService(src)

	_, err := svc.Leaderboard(context.Background(), LeaderboardQuery{
		Metric: "kills",
		Window: stats.WindowQuery{Period: stats.Period7Days, Days: 10},
	})
	var verr *stats.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, src.fetches, "validation must run before any data is read")
}

func TestRankCard(t *testing.T) {
	svc := newTestService(clanFixture())

	card, err := svc.RankCard(context.Background(), 2, stats.WindowQuery{})
	require.NoError(t, err)
	assert.Equal(t, "bravo", card.DisplayName)
	assert.Equal(t, 1, card.Matches)
	assert.Equal(t, 0, card.QualifiedMatches)
	assert.Equal(t, 2, card.KillsPosition)
	assert.Equal(t, 2, card.ScorePosition)

	_, err = svc.RankCard(context.Background(), 99, stats.WindowQuery{})
	var verr *stats.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "member", verr.Field)
}

func TestGulag_JoinedAtFallback(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.Gulag(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 30, report.ThresholdDays)

	var charlie domain.GulagRow
	for _, r := range report.Rows {
		if r.MemberID == 3 {
			charlie = r
		}
	}
	require.NotNil(t, charlie.BaselineDate, "charlie never played, baseline falls back to join date")
	assert.Nil(t, charlie.LastPlayedAt)
	assert.True(t, charlie.InGulag)
	assert.Equal(t, 90, charlie.DaysWithoutPlay)
}

func TestGulag_DefaultThresholdFromConfig(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.Gulag(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, 30, report.ThresholdDays)
}

func TestGulag_ExplicitZeroThresholdFlagsEveryBaseline(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.Gulag(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ThresholdDays)

	// Zero is a real threshold, not the default: any member with a
	// measurable baseline is idle for at least zero days.
	for _, r := range report.Rows {
		assert.True(t, r.InGulag, "%s should be flagged at threshold 0", r.DisplayName)
	}
}

func TestMembersReport(t *testing.T) {
	svc := newTestService(clanFixture())

	rows, err := svc.MembersReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byName := map[string]domain.MembersReportRow{}
	for _, r := range rows {
		byName[r.DisplayName] = r
	}
	assert.Equal(t, 1, byName["alpha"].Matches)
	assert.InDelta(t, 4.8, byName["alpha"].KDR, 1e-9)
	assert.Equal(t, 0, byName["charlie"].Matches)
	assert.Equal(t, 90, byName["charlie"].TenureDays)
}

func TestWeeklyScore(t *testing.T) {
	svc := newTestService(clanFixture())

	report, err := svc.WeeklyScore(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 11, report.Week.Number)
	assert.Equal(t, 2025, report.Week.Year)

	// Only alpha has a qualified match inside the current week.
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "alpha", report.Rows[0].DisplayName)
	assert.Equal(t, 1, report.Rows[0].QualifiedMatches)
	assert.Equal(t, 240, report.Rows[0].Ascenso)
}
