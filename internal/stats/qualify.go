package stats

import (
	"github.com/condor-legion/condor-stats/internal/domain"
)

// Condor qualification gate: a row counts toward competitive rankings only
// when the player fought meaningfully. The thresholds are fixed data-quality
// constants, not tunables.
const (
	condorMinInfantryKills = 40
	condorMinKDR           = 1.0
)

// Qualified reports whether a row passes the Condor gate:
// infantryKills >= 40 and (deaths == 0 or kdr >= 1.0).
func Qualified(row domain.PlayerMatchStatRow) bool {
	if row.InfantryKills < condorMinInfantryKills {
		return false
	}
	return row.Deaths == 0 || row.KillDeathRatio >= condorMinKDR
}

// AscensoPoints is the promotion score a single qualified row contributes.
func AscensoPoints(row domain.PlayerMatchStatRow) int {
	return row.Combat + row.Offense
}
