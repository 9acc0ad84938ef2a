package stats

import (
	"context"
	"time"

	"github.com/condor-legion/condor-stats/internal/domain"
)

// fakeSource returns its fixtures unfiltered, which also exercises the
// engine's own predicate application.
type fakeSource struct {
	members []domain.Member
	rows    []domain.PlayerMatchStatRow
	records []domain.MatchRecord

	rowFetches int
}

func (f *fakeSource) FetchMembers(_ context.Context, filter MemberFilter) ([]domain.Member, error) {
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

func (f *fakeSource) FetchMatchStatRows(_ context.Context, _ RowFilter) ([]domain.PlayerMatchStatRow, error) {
	f.rowFetches++
	return f.rows, nil
}

func (f *fakeSource) FetchMatchRecords(_ context.Context, _ RecordFilter) ([]domain.MatchRecord, error) {
	return f.records, nil
}

func strPtr(s string) *string { return &s }

func windowOf(start, end *time.Time) domain.Window {
	return domain.Window{Start: start, End: end}
}

func timePtr(t time.Time) *time.Time { return &t }

func int64Ptr(n int64) *int64 { return &n }

func member(id int64, name string, accounts ...domain.GameAccount) domain.Member {
	return domain.Member{
		ID:          id,
		DisplayName: name,
		DiscordID:   name + "#0001",
		Active:      true,
		Accounts:    accounts,
	}
}

func account(accountID string, memberID int64, providerID string) domain.GameAccount {
	return domain.GameAccount{AccountID: accountID, MemberID: memberID, ProviderID: providerID}
}

func statRow(matchID int64, importedAt time.Time, accountID, providerID *string) domain.PlayerMatchStatRow {
	return domain.PlayerMatchStatRow{
		MatchID:    matchID,
		ImportedAt: importedAt,
		AccountID:  accountID,
		ProviderID: providerID,
	}
}
