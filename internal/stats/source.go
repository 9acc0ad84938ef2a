package stats

import (
	"context"

	"github.com/condor-legion/condor-stats/internal/domain"
)

// MemberFilter narrows FetchMembers.
type MemberFilter struct {
	ActiveOnly bool
}

// RowFilter narrows FetchMatchStatRows. A source may apply any subset of it
// as a query optimization; the engine re-applies every predicate while
// folding, so a source that returns a superset is still correct.
type RowFilter struct {
	Identity        IdentitySet
	Window          domain.Window
	ExcludePractice bool
	Qualified       bool
}

// RecordFilter narrows FetchMatchRecords.
type RecordFilter struct {
	Window          *domain.Window
	ExcludePractice bool
}

// DataSource is the read capability the engine consumes. Implementations
// own storage and querying; the engine never writes and never retries.
type DataSource interface {
	FetchMembers(ctx context.Context, f MemberFilter) ([]domain.Member, error)
	FetchMatchStatRows(ctx context.Context, f RowFilter) ([]domain.PlayerMatchStatRow, error)
	FetchMatchRecords(ctx context.Context, f RecordFilter) ([]domain.MatchRecord, error)
}
