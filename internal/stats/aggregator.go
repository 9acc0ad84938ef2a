package stats

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/condor-legion/condor-stats/internal/domain"
)

const aggregateParallelism = 8

// Accumulator is one member's running aggregation state. Counting metrics
// are summed across every contributing row; rate metrics are summed and
// divided by the number of distinct contributing matches, because a
// per-match rate is not the ratio of totals across matches of unequal
// length.
type Accumulator struct {
	MemberID int64

	Kills     int
	Deaths    int
	Score     int
	Combat    int
	Offense   int
	Defense   int
	Support   int
	Teamkills int

	// Ascenso counts only rows passing the Condor gate, whatever mode the
	// surrounding aggregation runs in.
	Ascenso int

	kpmSum float64
	dpmSum float64
	kdrSum float64

	matches          map[int64]struct{}
	qualifiedMatches map[int64]struct{}

	lastImportedAt time.Time
	lastProviderID string
}

// NewAccumulator returns an empty accumulator for a member.
func NewAccumulator(memberID int64) *Accumulator {
	return &Accumulator{
		MemberID:         memberID,
		matches:          make(map[int64]struct{}),
		qualifiedMatches: make(map[int64]struct{}),
	}
}

// Add folds one contributing row in. Duplicate rows for the same match sum
// their counters but the match id enters the divisor set only once.
func (a *Accumulator) Add(row domain.PlayerMatchStatRow) {
	a.Kills += row.Kills
	a.Deaths += row.Deaths
	a.Score += row.Score
	a.Combat += row.Combat
	a.Offense += row.Offense
	a.Defense += row.Defense
	a.Support += row.Support
	a.Teamkills += row.Teamkills

	a.kpmSum += row.KillsPerMinute
	a.dpmSum += row.DeathsPerMinute
	a.kdrSum += row.KillDeathRatio

	a.matches[row.MatchID] = struct{}{}
	if Qualified(row) {
		a.Ascenso += AscensoPoints(row)
		a.qualifiedMatches[row.MatchID] = struct{}{}
	}

	if row.ImportedAt.After(a.lastImportedAt) {
		a.lastImportedAt = row.ImportedAt
		if row.ProviderID != nil {
			a.lastProviderID = *row.ProviderID
		}
	}
}

// Matches is the count of distinct contributing matches.
func (a *Accumulator) Matches() int {
	return len(a.matches)
}

// QualifiedMatches is the count of distinct matches with a qualified row.
func (a *Accumulator) QualifiedMatches() int {
	return len(a.qualifiedMatches)
}

// AvgKPM is the rate average of kills per minute, 0 with no matches.
func (a *Accumulator) AvgKPM() float64 {
	return a.rateAvg(a.kpmSum)
}

// AvgDPM is the rate average of deaths per minute, 0 with no matches.
func (a *Accumulator) AvgDPM() float64 {
	return a.rateAvg(a.dpmSum)
}

// AvgKDR is the rate average of the per-match kill/death ratio, 0 with no
// matches. Never (Σ kills)/(Σ deaths).
func (a *Accumulator) AvgKDR() float64 {
	return a.rateAvg(a.kdrSum)
}

func (a *Accumulator) rateAvg(sum float64) float64 {
	if len(a.matches) == 0 {
		return 0
	}
	return sum / float64(len(a.matches))
}

// LastPlayedAt is the import time of the most recent contributing match,
// nil when the member has none.
func (a *Accumulator) LastPlayedAt() *time.Time {
	if a.lastImportedAt.IsZero() {
		return nil
	}
	t := a.lastImportedAt
	return &t
}

// LastProviderID is the provider id seen on the most recently imported
// contributing match, used for display and identity back-fill.
func (a *Accumulator) LastProviderID() string {
	return a.lastProviderID
}

// AggregateOptions selects what enters a member's accumulator on top of
// identity matching.
type AggregateOptions struct {
	Window domain.Window
	// LastEvents, when positive, replaces the time window with the N most
	// recently imported contributing matches (WindowQuery.Events).
	LastEvents int
	// ExcludePractice drops matches linked to practice events. Every
	// competitive aggregation sets it.
	ExcludePractice bool
	// CondorOnly admits only rows passing the qualification gate.
	CondorOnly bool
}

// AggregateMember folds all rows matching one member's identity and the
// options into a fresh accumulator. A member with no linked identities
// never touches the source.
func AggregateMember(ctx context.Context, src DataSource, member domain.Member, opts AggregateOptions) (*Accumulator, error) {
	practice, err := practiceMatchIDs(ctx, src, opts.ExcludePractice)
	if err != nil {
		return nil, err
	}
	return aggregateMember(ctx, src, member, opts, practice)
}

func aggregateMember(ctx context.Context, src DataSource, member domain.Member, opts AggregateOptions, practice map[int64]struct{}) (*Accumulator, error) {
	acc := NewAccumulator(member.ID)
	identity := IdentityFor(member)
	if identity.Empty() {
		return acc, nil
	}

	fetchWindow := opts.Window
	if opts.LastEvents > 0 {
		// Events-count selection needs the full history first, and the
		// qualification gate must not shrink the candidate set before the
		// cap picks the N most recent matches.
		fetchWindow = domain.Window{}
	}
	rows, err := src.FetchMatchStatRows(ctx, RowFilter{
		Identity:        identity,
		Window:          fetchWindow,
		ExcludePractice: opts.ExcludePractice,
		Qualified:       opts.CondorOnly && opts.LastEvents == 0,
	})
	if err != nil {
		return nil, err
	}

	eligible := rows[:0:0]
	for _, row := range rows {
		if !identity.Matches(row) {
			continue
		}
		if _, isPractice := practice[row.MatchID]; isPractice {
			continue
		}
		if opts.LastEvents == 0 && !InWindow(opts.Window, row.ImportedAt) {
			continue
		}
		eligible = append(eligible, row)
	}

	// The cap selects matches on identity and practice exclusion alone; an
	// unqualified recent match still consumes one of the N slots and is then
	// dropped by the gate below.
	if opts.LastEvents > 0 {
		eligible = capToRecentMatches(eligible, opts.LastEvents)
	}

	for _, row := range eligible {
		if opts.CondorOnly && !Qualified(row) {
			continue
		}
		acc.Add(row)
	}
	return acc, nil
}

// AggregateMembers runs AggregateMember for every member in parallel.
// Each member's computation is independent, so only the returned map's
// assembly is synchronized by collecting per-index results.
func AggregateMembers(ctx context.Context, src DataSource, members []domain.Member, opts AggregateOptions) (map[int64]*Accumulator, error) {
	// The practice set is shared read-only across the fan-out.
	practice, err := practiceMatchIDs(ctx, src, opts.ExcludePractice)
	if err != nil {
		return nil, err
	}

	results := make([]*Accumulator, len(members))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(aggregateParallelism)
	for i, member := range members {
		g.Go(func() error {
			acc, err := aggregateMember(gCtx, src, member, opts, practice)
			if err != nil {
				return err
			}
			results[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accums := make(map[int64]*Accumulator, len(members))
	for _, acc := range results {
		accums[acc.MemberID] = acc
	}
	return accums, nil
}

// practiceMatchIDs returns the ids of practice-linked matches when practice
// exclusion is on. The aggregator filters on it even when the source
// already excluded practice rows, since exclusion is a correctness rule.
func practiceMatchIDs(ctx context.Context, src DataSource, excludePractice bool) (map[int64]struct{}, error) {
	if !excludePractice {
		return nil, nil
	}
	records, err := src.FetchMatchRecords(ctx, RecordFilter{})
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]struct{})
	for _, rec := range records {
		if rec.IsPractice() {
			ids[rec.ID] = struct{}{}
		}
	}
	return ids, nil
}

// capToRecentMatches keeps only rows belonging to the n most recently
// imported distinct matches among the given rows.
func capToRecentMatches(rows []domain.PlayerMatchStatRow, n int) []domain.PlayerMatchStatRow {
	type matchStamp struct {
		id         int64
		importedAt time.Time
	}
	seen := make(map[int64]time.Time)
	for _, row := range rows {
		if ts, ok := seen[row.MatchID]; !ok || row.ImportedAt.After(ts) {
			seen[row.MatchID] = row.ImportedAt
		}
	}
	stamps := make([]matchStamp, 0, len(seen))
	for id, ts := range seen {
		stamps = append(stamps, matchStamp{id: id, importedAt: ts})
	}
	sort.Slice(stamps, func(i, j int) bool {
		if stamps[i].importedAt.Equal(stamps[j].importedAt) {
			return stamps[i].id > stamps[j].id
		}
		return stamps[i].importedAt.After(stamps[j].importedAt)
	})
	if len(stamps) > n {
		stamps = stamps[:n]
	}

	keep := make(map[int64]struct{}, len(stamps))
	for _, s := range stamps {
		keep[s.id] = struct{}{}
	}
	out := rows[:0:0]
	for _, row := range rows {
		if _, ok := keep[row.MatchID]; ok {
			out = append(out, row)
		}
	}
	return out
}
