package stats

import (
	"sort"

	"github.com/condor-legion/condor-stats/internal/domain"
)

// Metric is a leaderboard ranking key.
type Metric string

const (
	MetricKills   Metric = "kills"
	MetricScore   Metric = "score"
	MetricKDR     Metric = "kdr"
	MetricCombat  Metric = "combat"
	MetricOffense Metric = "offense"
	MetricDefense Metric = "defense"
	MetricSupport Metric = "support"
	MetricAscenso Metric = "ascenso"
)

const (
	// DefaultLeaderboardLimit applies when a caller passes limit 0.
	DefaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
)

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricKills, MetricScore, MetricKDR, MetricCombat,
		MetricOffense, MetricDefense, MetricSupport, MetricAscenso:
		return Metric(name), nil
	}
	return "", invalidField("metric", "unknown metric "+name)
}

// metricValue selects the ranked value from an accumulator. kdr and ascenso
// are derived, the rest are stored sums.
func metricValue(m Metric, acc *Accumulator) float64 {
	switch m {
	case MetricKills:
		return float64(acc.Kills)
	case MetricScore:
		return float64(acc.Score)
	case MetricKDR:
		return acc.AvgKDR()
	case MetricCombat:
		return float64(acc.Combat)
	case MetricOffense:
		return float64(acc.Offense)
	case MetricDefense:
		return float64(acc.Defense)
	case MetricSupport:
		return float64(acc.Support)
	case MetricAscenso:
		return float64(acc.Ascenso)
	}
	return 0
}

// Rank builds the leaderboard: one entry per member with at least one
// contributing match, descending by the selected metric's value. Ties break
// on display name ascending so the order is deterministic across runs.
func Rank(members []domain.Member, accums map[int64]*Accumulator, metric Metric, limit int) ([]domain.LeaderboardEntry, error) {
	if limit == 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit < 1 || limit > maxLeaderboardLimit {
		return nil, invalidField("limit", "must be between 1 and 50")
	}

	entries := rankAll(members, accums, metric)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func rankAll(members []domain.Member, accums map[int64]*Accumulator, metric Metric) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		acc := accums[m.ID]
		if acc == nil || acc.Matches() == 0 {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			MemberID:       m.ID,
			DisplayName:    m.DisplayName,
			DiscordID:      m.DiscordID,
			Matches:        acc.Matches(),
			Kills:          acc.Kills,
			Deaths:         acc.Deaths,
			Score:          acc.Score,
			Combat:         acc.Combat,
			Offense:        acc.Offense,
			Defense:        acc.Defense,
			Support:        acc.Support,
			Teamkills:      acc.Teamkills,
			KDR:            acc.AvgKDR(),
			KillsPerMin:    acc.AvgKPM(),
			DeathsPerMin:   acc.AvgDPM(),
			Ascenso:        acc.Ascenso,
			Value:          metricValue(metric, acc),
			LastProviderID: acc.LastProviderID(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value == entries[j].Value {
			return entries[i].DisplayName < entries[j].DisplayName
		}
		return entries[i].Value > entries[j].Value
	})
	return entries
}

// Position returns the 1-based rank of a member for a metric among the
// given accumulators, or 0 when the member has no contributing matches.
func Position(members []domain.Member, accums map[int64]*Accumulator, metric Metric, memberID int64) int {
	for i, e := range rankAll(members, accums, metric) {
		if e.MemberID == memberID {
			return i + 1
		}
	}
	return 0
}
