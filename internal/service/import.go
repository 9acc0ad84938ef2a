package service

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/condor-legion/condor-stats/internal/constants"
	"github.com/condor-legion/condor-stats/internal/domain"
	"github.com/condor-legion/condor-stats/internal/repository"
	"github.com/condor-legion/condor-stats/internal/stats"
)

// ImportRow is one already-parsed per-player record as delivered by the
// CRCON side. Fields are normalized here, at the boundary, so the engine
// never sees alternate field names or loosely-typed values.
type ImportRow struct {
	AccountID  string
	ProviderID string

	Kills         int
	Deaths        int
	Score         int
	Combat        int
	Offense       int
	Defense       int
	Support       int
	Teamkills     int
	InfantryKills int
	KillStreak    int
	DeathStreak   int

	KillsPerMinute  float64
	DeathsPerMinute float64
	KillDeathRatio  float64
}

// ImportRequest is one match worth of rows.
type ImportRequest struct {
	ImportedAt    time.Time
	EventID       *int64
	PracticeEvent bool
	Rows          []ImportRow
}

// ImportService turns parsed CRCON match payloads into typed, persisted
// match records and stat rows.
type ImportService struct {
	store  *repository.Store
	logger zerolog.Logger
}

func NewImportService(store *repository.Store, logger zerolog.Logger) *ImportService {
	return &ImportService{store: store, logger: logger}
}

// Import validates, normalizes and stores one match. Returns the generated
// import id and the new match id.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (string, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if len(req.Rows) == 0 {
		return "", 0, &stats.ValidationError{Field: "rows", Reason: "at least one player row is required"}
	}
	for i, row := range req.Rows {
		if row.AccountID == "" && row.ProviderID == "" {
			return "", 0, &stats.ValidationError{
				Field:  fmt.Sprintf("rows[%d]", i),
				Reason: "row needs an account id or a provider id",
			}
		}
		if row.Kills < 0 || row.Deaths < 0 || row.Score < 0 || row.InfantryKills < 0 {
			return "", 0, &stats.ValidationError{
				Field:  fmt.Sprintf("rows[%d]", i),
				Reason: "counters must not be negative",
			}
		}
	}

	importedAt := req.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}

	importID, err := gonanoid.New(constants.ImportIDLength)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate import id: %w", err)
	}

	rows := make([]domain.PlayerMatchStatRow, len(req.Rows))
	for i, in := range req.Rows {
		row := domain.PlayerMatchStatRow{
			Kills:           in.Kills,
			Deaths:          in.Deaths,
			Score:           in.Score,
			Combat:          in.Combat,
			Offense:         in.Offense,
			Defense:         in.Defense,
			Support:         in.Support,
			Teamkills:       in.Teamkills,
			InfantryKills:   in.InfantryKills,
			KillStreak:      in.KillStreak,
			DeathStreak:     in.DeathStreak,
			KillsPerMinute:  in.KillsPerMinute,
			DeathsPerMinute: in.DeathsPerMinute,
			KillDeathRatio:  in.KillDeathRatio,
		}
		if in.AccountID != "" {
			v := in.AccountID
			row.AccountID = &v
		}
		if in.ProviderID != "" {
			v := in.ProviderID
			row.ProviderID = &v
		}
		rows[i] = row
	}

	matchID, err := s.store.InsertMatch(ctx, domain.MatchRecord{
		ImportID:      importID,
		ImportedAt:    importedAt,
		EventID:       req.EventID,
		PracticeEvent: req.PracticeEvent,
	}, rows)
	if err != nil {
		return "", 0, fmt.Errorf("failed to store match: %w", err)
	}

	attributed := s.countAttributed(ctx, rows)

	s.logger.Info().
		Str("import_id", importID).
		Int64("match_id", matchID).
		Int("rows", len(rows)).
		Int("attributed", attributed).
		Bool("practice", req.EventID != nil && req.PracticeEvent).
		Msg("match imported")

	return importID, matchID, nil
}

// countAttributed resolves the stored rows against the roster and returns how
// many belong to known members. Unattributed rows are expected for guests and
// are logged, not rejected.
func (s *ImportService) countAttributed(ctx context.Context, rows []domain.PlayerMatchStatRow) int {
	members, err := s.store.FetchMembers(ctx, stats.MemberFilter{})
	if err != nil {
		s.logger.Warn().Err(err).Msg("skipping row attribution check")
		return 0
	}

	dir := stats.BuildDirectory(members)
	attributed := 0
	for _, row := range rows {
		if _, ok := dir.Resolve(row); ok {
			attributed++
		}
	}
	if n := dir.Unattributed(); n > 0 {
		s.logger.Debug().Int("rows", n).Msg("rows without a roster match")
	}
	return attributed
}
