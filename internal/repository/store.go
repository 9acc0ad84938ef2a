package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/condor-legion/condor-stats/internal/constants"
	"github.com/condor-legion/condor-stats/internal/stats"
)

// Store is the SQLite-backed implementation of the engine's read capability
// plus the write paths used by ingestion and roster sync.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStore(sqlDB *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: sqlDB, logger: logger}
}

var _ stats.DataSource = (*Store)(nil)

// queryCtx bounds a single statement; callers still carry the request-level
// deadline in ctx.
func queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, constants.DatabaseTimeout)
}

// placeholders renders "?,?,?" for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func wrapQuery(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
