// Package report renders engine reports as terminal tables for statsctl.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/condor-legion/condor-stats/internal/domain"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintLeaderboard writes the ranked entries as a table.
func PrintLeaderboard(w io.Writer, report *domain.LeaderboardReport) {
	if report.Week != nil {
		fmt.Fprintf(w, "\nISO week %d / %d\n", report.Week.Number, report.Week.Year)
	}
	fmt.Fprintf(w, "\nLeaderboard (%s)\n\n", report.Metric)

	table := newTable(w)
	table.Header("#", "MEMBER", "MATCHES", "KILLS", "DEATHS", "SCORE", "K/D", "KPM", "ASCENSO", "VALUE")
	for i, e := range report.Entries {
		table.Append(
			strconv.Itoa(i+1),
			e.DisplayName,
			strconv.Itoa(e.Matches),
			strconv.Itoa(e.Kills),
			strconv.Itoa(e.Deaths),
			strconv.Itoa(e.Score),
			fmt.Sprintf("%.2f", e.KDR),
			fmt.Sprintf("%.2f", e.KillsPerMin),
			strconv.Itoa(e.Ascenso),
			fmt.Sprintf("%.2f", e.Value),
		)
	}
	table.Render()
}

// PrintGulag writes the inactivity report as a table.
func PrintGulag(w io.Writer, report *domain.GulagReport) {
	fmt.Fprintf(w, "\nGulag report (threshold %d days)\n\n", report.ThresholdDays)

	table := newTable(w)
	table.Header(" ", "MEMBER", "JOINED", "LAST PLAYED", "IDLE DAYS", "MISSED EVENTS")
	for _, r := range report.Rows {
		marker := " "
		if r.InGulag {
			marker = "!"
		}
		idle := "-"
		if r.DaysWithoutPlay >= 0 {
			idle = strconv.Itoa(r.DaysWithoutPlay)
		}
		table.Append(
			marker,
			r.DisplayName,
			formatDate(r.JoinedAt),
			formatDate(r.LastPlayedAt),
			idle,
			strconv.Itoa(r.EventsWithoutPlay),
		)
	}
	table.Render()
}

// PrintMembers writes the full roster report as a table.
func PrintMembers(w io.Writer, rows []domain.MembersReportRow) {
	fmt.Fprintf(w, "\nMembers report\n\n")

	table := newTable(w)
	table.Header("MEMBER", "ACTIVE", "TENURE", "MATCHES", "KILLS", "DEATHS", "SCORE", "K/D", "KPM")
	for _, r := range rows {
		active := "no"
		if r.Active {
			active = "yes"
		}
		table.Append(
			r.DisplayName,
			active,
			strconv.Itoa(r.TenureDays),
			strconv.Itoa(r.Matches),
			strconv.Itoa(r.Kills),
			strconv.Itoa(r.Deaths),
			strconv.Itoa(r.Score),
			fmt.Sprintf("%.2f", r.KDR),
			fmt.Sprintf("%.2f", r.KillsPerMin),
		)
	}
	table.Render()
}

// PrintWeekly writes the weekly qualification standings as a table.
func PrintWeekly(w io.Writer, report *domain.WeeklyScoreReport) {
	fmt.Fprintf(w, "\nWeekly score, ISO week %d/%d\n\n", report.Week.Number, report.Week.Year)

	table := newTable(w)
	table.Header("MEMBER", "QUALIFIED", "ASCENSO")
	for _, r := range report.Rows {
		table.Append(
			r.DisplayName,
			strconv.Itoa(r.QualifiedMatches),
			strconv.Itoa(r.Ascenso),
		)
	}
	table.Render()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
