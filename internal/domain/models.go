package domain

import (
	"time"
)

// Member is a clan roster entry, the unit of identity for every report.
type Member struct {
	ID          int64
	DisplayName string
	DiscordID   string
	Active      bool
	JoinedAt    *time.Time // from roster sync, may be unknown
	Accounts    []GameAccount
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GameAccount links a platform credential to exactly one member. The
// provider id is the platform-specific player id and doubles as a fallback
// identity key for rows ingested before the account link existed.
type GameAccount struct {
	AccountID  string
	MemberID   int64
	ProviderID string
	CreatedAt  time.Time
}

// MatchRecord is one ingested match ("import"). Immutable once created.
type MatchRecord struct {
	ID            int64
	ImportID      string
	ImportedAt    time.Time
	EventID       *int64 // scheduled event link, nil if none
	PracticeEvent bool   // only meaningful when EventID is set
	CreatedAt     time.Time
}

// IsPractice reports whether the match is linked to a practice event.
func (m MatchRecord) IsPractice() bool {
	return m.EventID != nil && m.PracticeEvent
}

// PlayerMatchStatRow is one player's raw combat line in one match.
// AccountID is nil when the account link was not yet established at
// ingestion time; ProviderID is then the only identity reference.
type PlayerMatchStatRow struct {
	MatchID    int64
	ImportedAt time.Time
	AccountID  *string
	ProviderID *string

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

	// Per-match rates computed at ingestion from the match's own duration.
	// Never recomputed from summed counts across matches.
	KillsPerMinute  float64
	DeathsPerMinute float64
	KillDeathRatio  float64
}

// WeekInfo carries the ISO week a "week" window resolved to.
type WeekInfo struct {
	Number int
	Year   int
}

// Window is the resolved time filter for an aggregation. Nil Start and End
// means all time. Never persisted, recomputed per request.
type Window struct {
	Start *time.Time
	End   *time.Time
	Week  *WeekInfo
}

// AllTime reports whether the window applies no filter at all.
func (w Window) AllTime() bool {
	return w.Start == nil && w.End == nil
}

// LeaderboardEntry is one ranked member row.
type LeaderboardEntry struct {
	MemberID       int64
	DisplayName    string
	DiscordID      string
	Matches        int
	Kills          int
	Deaths         int
	Score          int
	Combat         int
	Offense        int
	Defense        int
	Support        int
	Teamkills      int
	KDR            float64
	KillsPerMin    float64
	DeathsPerMin   float64
	Ascenso        int
	Value          float64 // selected metric's value
	LastProviderID string
}

// LeaderboardReport is the ranked slice plus window metadata.
type LeaderboardReport struct {
	Metric  string
	Entries []LeaderboardEntry
	Week    *WeekInfo
}

// RankCard is a single member's personal summary with 1-based positions
// among active members for the headline metrics (0 when unranked).
type RankCard struct {
	MemberID         int64
	DisplayName      string
	Matches          int
	QualifiedMatches int
	Kills            int
	Deaths           int
	Score            int
	Combat           int
	Offense          int
	Defense          int
	Support          int
	KDR              float64
	KillsPerMin      float64
	DeathsPerMin     float64
	Ascenso          int
	KillsPosition    int
	ScorePosition    int
	KDRPosition      int
	Week             *WeekInfo
}

// GulagRow describes one member's inactivity standing.
type GulagRow struct {
	MemberID          int64
	DisplayName       string
	DiscordID         string
	JoinedAt          *time.Time
	TenureDays        int
	LastPlayedAt      *time.Time
	BaselineDate      *time.Time
	DaysWithoutPlay   int // -1 when no baseline exists
	EventsWithoutPlay int
	InGulag           bool
}

// GulagReport is the inactivity report over all active members.
type GulagReport struct {
	ThresholdDays int
	Rows          []GulagRow
}

// MembersReportRow combines tenure, activity and derived averages for the
// full-roster report.
type MembersReportRow struct {
	MemberID     int64
	DisplayName  string
	DiscordID    string
	Active       bool
	JoinedAt     *time.Time
	TenureDays   int
	LastPlayedAt *time.Time
	Matches      int
	Kills        int
	Deaths       int
	Score        int
	KDR          float64
	KillsPerMin  float64
}

// WeeklyScoreRow is one member's qualification score inside an ISO week.
type WeeklyScoreRow struct {
	MemberID         int64
	DisplayName      string
	QualifiedMatches int
	Ascenso          int
}

// WeeklyScoreReport is the weekly qualification standings.
type WeeklyScoreReport struct {
	Week WeekInfo
	Rows []WeeklyScoreRow
}
