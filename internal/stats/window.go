package stats

import (
	"time"

	"github.com/condor-legion/condor-stats/internal/domain"
)

// Periods accepted by WindowQuery.Period.
const (
	PeriodWeek    = "week"
	Period7Days   = "7d"
	Period30Days  = "30d"
	PeriodAllTime = "all"
)

const (
	maxDays       = 365
	maxWeekOffset = 52
)

// clanLocation is the fixed UTC-3 civil calendar all week math runs in.
// Weekday arithmetic on the host timezone shifts week boundaries for users
// on the other side of midnight, so the Monday/Thursday adjustment must use
// this zone and nothing else.
var clanLocation = time.FixedZone("UTC-3", -3*60*60)

// WindowQuery is the raw, mutually-exclusive window selector set as it
// arrives from a caller. Zero values mean "not supplied".
type WindowQuery struct {
	Period     string // "7d", "30d", "all" or "week"
	Days       int    // 1..365
	Events     int    // last-N-matches selection, not a time range
	WeekOffset int    // 0..52, only with Period == "week"
}

// ResolveWindow validates the selector set and converts it into a concrete
// window. The Events selector is not resolved here: it depends on a member's
// identity and the row source, so it is carried through on the query and
// applied by the aggregator (see AggregateMembers).
func ResolveWindow(now time.Time, q WindowQuery) (domain.Window, error) {
	supplied := 0
	if q.Period != "" {
		supplied++
	}
	if q.Days != 0 {
		supplied++
	}
	if q.Events != 0 {
		supplied++
	}
	if supplied > 1 {
		return domain.Window{}, invalidField("window", "period, days and events are mutually exclusive")
	}
	if q.WeekOffset != 0 && q.Period != PeriodWeek {
		return domain.Window{}, invalidField("weekOffset", "only valid with period=week")
	}

	switch {
	case q.Days != 0:
		if q.Days < 1 || q.Days > maxDays {
			return domain.Window{}, invalidField("days", "must be between 1 and 365")
		}
		start := now.AddDate(0, 0, -q.Days)
		return domain.Window{Start: &start}, nil

	case q.Events != 0:
		if q.Events < 1 {
			return domain.Window{}, invalidField("events", "must be positive")
		}
		// Resolved per member by the aggregator.
		return domain.Window{}, nil

	case q.Period == Period7Days:
		start := now.AddDate(0, 0, -7)
		return domain.Window{Start: &start}, nil

	case q.Period == Period30Days:
		start := now.AddDate(0, 0, -30)
		return domain.Window{Start: &start}, nil

	case q.Period == PeriodWeek:
		if q.WeekOffset < 0 || q.WeekOffset > maxWeekOffset {
			return domain.Window{}, invalidField("weekOffset", "must be between 0 and 52")
		}
		return weekWindow(now, q.WeekOffset), nil

	case q.Period == PeriodAllTime, q.Period == "":
		return domain.Window{}, nil

	default:
		return domain.Window{}, invalidField("period", "must be one of 7d, 30d, all, week")
	}
}

// weekWindow computes the [Monday 00:00:00.000, Sunday 23:59:59.999] bounds
// of the ISO week `offset` weeks before now, in the clan's UTC-3 calendar,
// and returns them as real UTC instants. The ISO week number is taken from
// that week's Thursday, which also settles the week-year at year boundaries.
func weekWindow(now time.Time, offset int) domain.Window {
	local := now.In(clanLocation).AddDate(0, 0, -7*offset)

	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the prior Monday
	}
	monday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, clanLocation).
		AddDate(0, 0, -(weekday - 1))
	sundayEnd := monday.AddDate(0, 0, 7).Add(-time.Millisecond)

	thursday := monday.AddDate(0, 0, 3)
	year, week := thursday.ISOWeek()

	start := monday.UTC()
	end := sundayEnd.UTC()
	return domain.Window{
		Start: &start,
		End:   &end,
		Week:  &domain.WeekInfo{Number: week, Year: year},
	}
}

// InWindow reports whether a timestamp falls inside the window's time range.
func InWindow(w domain.Window, ts time.Time) bool {
	if w.Start != nil && ts.Before(*w.Start) {
		return false
	}
	if w.End != nil && ts.After(*w.End) {
		return false
	}
	return true
}
