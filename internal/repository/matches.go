package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/condor-legion/condor-stats/internal/domain"
	"github.com/condor-legion/condor-stats/internal/stats"
)

// FetchMatchRecords returns match records, optionally restricted to a time
// window, ordered by import time ascending.
func (s *Store) FetchMatchRecords(ctx context.Context, f stats.RecordFilter) ([]domain.MatchRecord, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	query := `
		SELECT id, import_id, imported_at, event_id, practice_event, created_at
		FROM match_records WHERE 1=1`
	var args []any
	if f.Window != nil {
		if f.Window.Start != nil {
			query += ` AND imported_at >= ?`
			args = append(args, *f.Window.Start)
		}
		if f.Window.End != nil {
			query += ` AND imported_at <= ?`
			args = append(args, *f.Window.End)
		}
	}
	if f.ExcludePractice {
		query += ` AND NOT (event_id IS NOT NULL AND practice_event = 1)`
	}
	query += ` ORDER BY imported_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapQuery("fetch match records", err)
	}
	defer rows.Close()

	var records []domain.MatchRecord
	for rows.Next() {
		var rec domain.MatchRecord
		var eventID sql.NullInt64
		var practice int
		if err := rows.Scan(&rec.ID, &rec.ImportID, &rec.ImportedAt, &eventID, &practice, &rec.CreatedAt); err != nil {
			return nil, wrapQuery("scan match record", err)
		}
		if eventID.Valid {
			id := eventID.Int64
			rec.EventID = &id
		}
		rec.PracticeEvent = practice == 1
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery("iterate match records", err)
	}
	return records, nil
}

// FetchMatchStatRows returns stat rows matching the filter. Identity,
// window, practice and qualification predicates are pushed into SQL as an
// optimization; the engine re-applies them while folding.
func (s *Store) FetchMatchStatRows(ctx context.Context, f stats.RowFilter) ([]domain.PlayerMatchStatRow, error) {
	accountIDs := f.Identity.AccountIDList()
	providerIDs := f.Identity.ProviderIDList()
	if len(accountIDs) == 0 && len(providerIDs) == 0 {
		return []domain.PlayerMatchStatRow{}, nil
	}

	ctx, cancel := queryCtx(ctx)
	defer cancel()

	query := `
		SELECT r.match_id, m.imported_at, r.account_id, r.provider_id,
		       r.kills, r.deaths, r.score, r.combat, r.offense, r.defense, r.support,
		       r.teamkills, r.infantry_kills, r.kill_streak, r.death_streak,
		       r.kills_per_minute, r.deaths_per_minute, r.kill_death_ratio
		FROM player_match_stat_rows r
		JOIN match_records m ON m.id = r.match_id
		WHERE (`
	var args []any

	clauses := 0
	if len(accountIDs) > 0 {
		query += `r.account_id IN (` + placeholders(len(accountIDs)) + `)`
		args = append(args, toAnySlice(accountIDs)...)
		clauses++
	}
	if len(providerIDs) > 0 {
		if clauses > 0 {
			query += ` OR `
		}
		query += `(r.account_id IS NULL AND r.provider_id IN (` + placeholders(len(providerIDs)) + `))`
		args = append(args, toAnySlice(providerIDs)...)
	}
	query += `)`

	if f.Window.Start != nil {
		query += ` AND m.imported_at >= ?`
		args = append(args, *f.Window.Start)
	}
	if f.Window.End != nil {
		query += ` AND m.imported_at <= ?`
		args = append(args, *f.Window.End)
	}
	if f.ExcludePractice {
		query += ` AND NOT (m.event_id IS NOT NULL AND m.practice_event = 1)`
	}
	if f.Qualified {
		query += ` AND r.infantry_kills >= 40 AND (r.deaths = 0 OR r.kill_death_ratio >= 1.0)`
	}
	query += ` ORDER BY m.imported_at`

	dbRows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapQuery("fetch stat rows", err)
	}
	defer dbRows.Close()

	var result []domain.PlayerMatchStatRow
	for dbRows.Next() {
		var row domain.PlayerMatchStatRow
		var accountID, providerID sql.NullString
		if err := dbRows.Scan(
			&row.MatchID, &row.ImportedAt, &accountID, &providerID,
			&row.Kills, &row.Deaths, &row.Score, &row.Combat, &row.Offense, &row.Defense, &row.Support,
			&row.Teamkills, &row.InfantryKills, &row.KillStreak, &row.DeathStreak,
			&row.KillsPerMinute, &row.DeathsPerMinute, &row.KillDeathRatio,
		); err != nil {
			return nil, wrapQuery("scan stat row", err)
		}
		if accountID.Valid {
			v := accountID.String
			row.AccountID = &v
		}
		if providerID.Valid {
			v := providerID.String
			row.ProviderID = &v
		}
		result = append(result, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, wrapQuery("iterate stat rows", err)
	}
	return result, nil
}

// InsertMatch writes one match record and its per-player stat rows in a
// single transaction and returns the new match id.
func (s *Store) InsertMatch(ctx context.Context, rec domain.MatchRecord, rows []domain.PlayerMatchStatRow) (int64, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapQuery("begin insert match", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var eventID any
	if rec.EventID != nil {
		eventID = *rec.EventID
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO match_records (import_id, imported_at, event_id, practice_event, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ImportID, rec.ImportedAt, eventID, boolInt(rec.PracticeEvent), now)
	if err != nil {
		return 0, wrapQuery("insert match record", err)
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return 0, wrapQuery("resolve match id", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_match_stat_rows (
			match_id, account_id, provider_id,
			kills, deaths, score, combat, offense, defense, support,
			teamkills, infantry_kills, kill_streak, death_streak,
			kills_per_minute, deaths_per_minute, kill_death_ratio, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, wrapQuery("prepare stat row insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			matchID, nullableString(row.AccountID), nullableString(row.ProviderID),
			row.Kills, row.Deaths, row.Score, row.Combat, row.Offense, row.Defense, row.Support,
			row.Teamkills, row.InfantryKills, row.KillStreak, row.DeathStreak,
			row.KillsPerMinute, row.DeathsPerMinute, row.KillDeathRatio, now)
		if err != nil {
			return 0, wrapQuery("insert stat row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapQuery("commit insert match", err)
	}

	s.logger.Debug().
		Int64("match_id", matchID).
		Str("import_id", rec.ImportID).
		Int("rows", len(rows)).
		Msg("match inserted")
	return matchID, nil
}
