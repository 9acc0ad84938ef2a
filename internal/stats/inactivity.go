package stats

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/condor-legion/condor-stats/internal/domain"
)

// DefaultGulagThresholdDays flags members after a month without play.
const DefaultGulagThresholdDays = 30

const day = 24 * time.Hour

// EvaluateInactivity computes the gulag report for every active member.
// The baseline is the last contributing match's import time, falling back
// to the roster join date for members who never played. Members with no
// computable baseline are never flagged. Per-member work runs in parallel;
// the final slice is sorted descending by days without play, members with
// no baseline last.
func EvaluateInactivity(ctx context.Context, src DataSource, members []domain.Member, now time.Time, thresholdDays int) ([]domain.GulagRow, error) {
	if thresholdDays < 0 {
		return nil, invalidField("threshold", "must not be negative")
	}

	// All-time match list, shared across members: "events without play" is
	// measured against every import, not the member's own matches.
	allMatches, err := src.FetchMatchRecords(ctx, RecordFilter{})
	if err != nil {
		return nil, err
	}
	practice := make(map[int64]struct{})
	for _, rec := range allMatches {
		if rec.IsPractice() {
			practice[rec.ID] = struct{}{}
		}
	}

	threshold := time.Duration(thresholdDays) * day
	rows := make([]domain.GulagRow, len(members))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(aggregateParallelism)
	for i, member := range members {
		g.Go(func() error {
			acc, err := aggregateMember(gCtx, src, member, AggregateOptions{
				ExcludePractice: true,
			}, practice)
			if err != nil {
				return err
			}
			rows[i] = evaluateMember(member, acc, allMatches, now, threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DaysWithoutPlay > rows[j].DaysWithoutPlay
	})
	return rows, nil
}

func evaluateMember(member domain.Member, acc *Accumulator, allMatches []domain.MatchRecord, now time.Time, threshold time.Duration) domain.GulagRow {
	row := domain.GulagRow{
		MemberID:        member.ID,
		DisplayName:     member.DisplayName,
		DiscordID:       member.DiscordID,
		JoinedAt:        member.JoinedAt,
		LastPlayedAt:    acc.LastPlayedAt(),
		DaysWithoutPlay: -1,
	}
	if member.JoinedAt != nil {
		row.TenureDays = int(now.Sub(*member.JoinedAt) / day)
	}

	baseline := row.LastPlayedAt
	if baseline == nil {
		baseline = member.JoinedAt
	}
	row.BaselineDate = baseline
	if baseline == nil {
		// No way to measure inactivity, never flag.
		return row
	}

	idle := now.Sub(*baseline)
	row.DaysWithoutPlay = int(idle / day)
	row.InGulag = idle >= threshold

	for _, rec := range allMatches {
		if rec.ImportedAt.After(*baseline) {
			row.EventsWithoutPlay++
		}
	}
	return row
}
