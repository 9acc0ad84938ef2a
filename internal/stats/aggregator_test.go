package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condor-legion/condor-stats/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fullRow(matchID int64, importedAt time.Time, accountID string) domain.PlayerMatchStatRow {
	return domain.PlayerMatchStatRow{
		MatchID:         matchID,
		ImportedAt:      importedAt,
		AccountID:       strPtr(accountID),
		Kills:           10,
		Deaths:          5,
		Score:           300,
		Combat:          100,
		Offense:         50,
		Defense:         40,
		Support:         30,
		Teamkills:       1,
		InfantryKills:   10,
		KillsPerMinute:  1.0,
		DeathsPerMinute: 0.5,
		KillDeathRatio:  2.0,
	}
}

func TestAccumulator_DeduplicatesMatchesForRateAveraging(t *testing.T) {
	acc := NewAccumulator(1)

	r1 := fullRow(7, baseTime, "acc-1")
	r2 := fullRow(7, baseTime, "acc-1")
	r2.Kills = 4
	r2.KillDeathRatio = 1.0
	acc.Add(r1)
	acc.Add(r2)

	// Counting metrics sum across both rows.
	assert.Equal(t, 14, acc.Kills)
	assert.Equal(t, 10, acc.Deaths)
	// The match contributes once to the divisor.
	assert.Equal(t, 1, acc.Matches())
	assert.InDelta(t, 3.0, acc.AvgKDR(), 1e-9)
}

func TestAccumulator_RateAverageIsPerMatchMean(t *testing.T) {
	acc := NewAccumulator(1)

	r1 := fullRow(1, baseTime, "acc-1")
	r1.Kills, r1.Deaths = 30, 10
	r1.KillDeathRatio = 3.0
	r1.KillsPerMinute = 2.0
	r2 := fullRow(2, baseTime.Add(time.Hour), "acc-1")
	r2.Kills, r2.Deaths = 1, 1
	r2.KillDeathRatio = 1.0
	r2.KillsPerMinute = 4.0
	acc.Add(r1)
	acc.Add(r2)

	// (3.0 + 1.0) / 2, never (Σ kills)/(Σ deaths) = 31/11.
	assert.InDelta(t, 2.0, acc.AvgKDR(), 1e-9)
	assert.InDelta(t, 3.0, acc.AvgKPM(), 1e-9)
}

func TestAccumulator_ZeroMatches(t *testing.T) {
	acc := NewAccumulator(1)

	assert.Equal(t, 0, acc.Matches())
	assert.Zero(t, acc.AvgKDR())
	assert.Zero(t, acc.AvgKPM())
	assert.Zero(t, acc.AvgDPM())
	assert.Nil(t, acc.LastPlayedAt())
	assert.Empty(t, acc.LastProviderID())
}

func TestAccumulator_TracksLastProviderID(t *testing.T) {
	acc := NewAccumulator(1)

	older := statRow(1, baseTime, nil, strPtr("P-old"))
	newer := statRow(2, baseTime.Add(time.Hour), nil, strPtr("P-new"))
	acc.Add(newer)
	acc.Add(older)

	assert.Equal(t, "P-new", acc.LastProviderID())
	require.NotNil(t, acc.LastPlayedAt())
	assert.Equal(t, baseTime.Add(time.Hour), *acc.LastPlayedAt())
}

func TestAggregateMember_EmptyIdentityShortCircuits(t *testing.T) {
	src := &fakeSource{rows: []domain.PlayerMatchStatRow{fullRow(1, baseTime, "acc-1")}}

	acc, err := AggregateMember(context.Background(), src, member(1, "alpha"), AggregateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Matches())
	assert.Equal(t, 0, src.rowFetches, "data source must not be queried for a member with no identities")
}

func TestAggregateMember_ExcludesPracticeMatches(t *testing.T) {
	src := &fakeSource{
		rows: []domain.PlayerMatchStatRow{
			fullRow(1, baseTime, "acc-1"),             // practice-linked
			fullRow(2, baseTime.Add(time.Hour), "acc-1"), // competitive event
			fullRow(3, baseTime.Add(2*time.Hour), "acc-1"), // no event link
		},
		records: []domain.MatchRecord{
			{ID: 1, ImportedAt: baseTime, EventID: int64Ptr(10), PracticeEvent: true},
			{ID: 2, ImportedAt: baseTime.Add(time.Hour), EventID: int64Ptr(11), PracticeEvent: false},
			{ID: 3, ImportedAt: baseTime.Add(2 * time.Hour)},
		},
	}

	acc, err := AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{ExcludePractice: true})
	require.NoError(t, err)
	assert.Equal(t, 2, acc.Matches())

	// Without exclusion the practice match counts too.
	acc, err = AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, acc.Matches())
}

func TestAggregateMember_AppliesWindow(t *testing.T) {
	src := &fakeSource{
		rows: []domain.PlayerMatchStatRow{
			fullRow(1, baseTime, "acc-1"),
			fullRow(2, baseTime.AddDate(0, 0, 10), "acc-1"),
		},
	}
	start := baseTime.AddDate(0, 0, 5)

	acc, err := AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{Window: windowOf(&start, nil)})
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Matches())
}

func TestAggregateMember_CondorOnlyDropsUnqualifiedRows(t *testing.T) {
	qualified := fullRow(1, baseTime, "acc-1")
	qualified.InfantryKills = 45
	qualified.KillDeathRatio = 2.0
	unqualified := fullRow(2, baseTime.Add(time.Hour), "acc-1")
	unqualified.InfantryKills = 12

	src := &fakeSource{rows: []domain.PlayerMatchStatRow{qualified, unqualified}}

	acc, err := AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{CondorOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Matches())
	assert.Equal(t, 1, acc.QualifiedMatches())
	assert.Equal(t, qualified.Combat+qualified.Offense, acc.Ascenso)
}

func TestAggregateMember_LastEventsCapsToMostRecentMatches(t *testing.T) {
	src := &fakeSource{
		rows: []domain.PlayerMatchStatRow{
			fullRow(1, baseTime, "acc-1"),
			fullRow(2, baseTime.Add(time.Hour), "acc-1"),
			fullRow(3, baseTime.Add(2*time.Hour), "acc-1"),
		},
	}

	acc, err := AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{LastEvents: 2, ExcludePractice: true})
	require.NoError(t, err)
	assert.Equal(t, 2, acc.Matches())
	// The two most recent matches contribute 20 kills in total.
	assert.Equal(t, 20, acc.Kills)
}

func TestAggregateMember_LastEventsCapPrecedesQualificationGate(t *testing.T) {
	older := fullRow(1, baseTime, "acc-1")
	older.InfantryKills = 45
	mid := fullRow(2, baseTime.Add(time.Hour), "acc-1")
	mid.InfantryKills = 45
	// The most recent match fails the gate but must still occupy one of the
	// two slots, pushing the oldest qualified match out of the selection.
	recent := fullRow(3, baseTime.Add(2*time.Hour), "acc-1")
	recent.InfantryKills = 12

	src := &fakeSource{rows: []domain.PlayerMatchStatRow{older, mid, recent}}

	acc, err := AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{LastEvents: 2, ExcludePractice: true, CondorOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Matches())
	assert.Equal(t, 10, acc.Kills)
	assert.Equal(t, mid.Combat+mid.Offense, acc.Ascenso)
}

func TestAggregateMember_IgnoresOtherMembersRows(t *testing.T) {
	src := &fakeSource{
		rows: []domain.PlayerMatchStatRow{
			fullRow(1, baseTime, "acc-1"),
			fullRow(1, baseTime, "acc-other"),
		},
	}

	acc, err := AggregateMember(context.Background(), src,
		member(1, "alpha", account("acc-1", 1, "P1")),
		AggregateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10, acc.Kills)
}

func TestAggregateMembers(t *testing.T) {
	members := []domain.Member{
		member(1, "alpha", account("acc-1", 1, "P1")),
		member(2, "bravo", account("acc-2", 2, "P2")),
		member(3, "charlie"),
	}
	src := &fakeSource{
		rows: []domain.PlayerMatchStatRow{
			fullRow(1, baseTime, "acc-1"),
			fullRow(2, baseTime, "acc-2"),
			fullRow(3, baseTime, "acc-2"),
		},
	}

	accums, err := AggregateMembers(context.Background(), src, members, AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, accums, 3)
	assert.Equal(t, 1, accums[1].Matches())
	assert.Equal(t, 2, accums[2].Matches())
	assert.Equal(t, 0, accums[3].Matches())
}
