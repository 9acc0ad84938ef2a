package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/condor-legion/condor-stats/internal/domain"
	"github.com/condor-legion/condor-stats/internal/stats"
)

// FetchMembers returns members with their linked game accounts, ordered by
// id so identity directories resolve provider-id collisions deterministically.
func (s *Store) FetchMembers(ctx context.Context, f stats.MemberFilter) ([]domain.Member, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	query := `
		SELECT id, display_name, discord_id, active, joined_at, created_at, updated_at
		FROM members`
	if f.ActiveOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapQuery("fetch members", err)
	}
	defer rows.Close()

	var members []domain.Member
	index := make(map[int64]int)
	for rows.Next() {
		var m domain.Member
		var active int
		var joinedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.DiscordID, &active, &joinedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, wrapQuery("scan member", err)
		}
		m.Active = active == 1
		if joinedAt.Valid {
			t := joinedAt.Time
			m.JoinedAt = &t
		}
		index[m.ID] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery("iterate members", err)
	}
	if len(members) == 0 {
		return []domain.Member{}, nil
	}

	accRows, err := s.db.QueryContext(ctx, `
		SELECT account_id, member_id, provider_id, created_at
		FROM game_accounts ORDER BY created_at, account_id`)
	if err != nil {
		return nil, wrapQuery("fetch game accounts", err)
	}
	defer accRows.Close()

	for accRows.Next() {
		var acc domain.GameAccount
		if err := accRows.Scan(&acc.AccountID, &acc.MemberID, &acc.ProviderID, &acc.CreatedAt); err != nil {
			return nil, wrapQuery("scan game account", err)
		}
		if i, ok := index[acc.MemberID]; ok {
			members[i].Accounts = append(members[i].Accounts, acc)
		}
	}
	if err := accRows.Err(); err != nil {
		return nil, wrapQuery("iterate game accounts", err)
	}

	return members, nil
}

// UpsertMember creates or updates a roster entry keyed by Discord id and
// returns its id.
func (s *Store) UpsertMember(ctx context.Context, m domain.Member) (int64, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	now := time.Now()
	var joinedAt any
	if m.JoinedAt != nil {
		joinedAt = *m.JoinedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (display_name, discord_id, active, joined_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(discord_id) DO UPDATE SET
			display_name = excluded.display_name,
			active = excluded.active,
			joined_at = excluded.joined_at,
			updated_at = excluded.updated_at`,
		m.DisplayName, m.DiscordID, boolInt(m.Active), joinedAt, now, now)
	if err != nil {
		return 0, wrapQuery("upsert member", err)
	}

	// LastInsertId is unreliable on the conflict-update path, resolve by key.
	var id int64
	row := s.db.QueryRowContext(ctx, `SELECT id FROM members WHERE discord_id = ?`, m.DiscordID)
	if err := row.Scan(&id); err != nil {
		return 0, wrapQuery("resolve member id", err)
	}
	return id, nil
}

// LinkGameAccount attaches a platform credential to a member.
func (s *Store) LinkGameAccount(ctx context.Context, acc domain.GameAccount) error {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_accounts (account_id, member_id, provider_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			member_id = excluded.member_id,
			provider_id = excluded.provider_id`,
		acc.AccountID, acc.MemberID, acc.ProviderID, time.Now())
	if err != nil {
		return wrapQuery("link game account", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
