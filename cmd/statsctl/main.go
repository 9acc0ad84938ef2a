// statsctl runs the reports straight against the database, for operators
// who want standings without the HTTP service.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/condor-legion/condor-stats/internal/config"
	"github.com/condor-legion/condor-stats/internal/database"
	"github.com/condor-legion/condor-stats/internal/logger"
	"github.com/condor-legion/condor-stats/internal/report"
	"github.com/condor-legion/condor-stats/internal/repository"
	"github.com/condor-legion/condor-stats/internal/service"
	"github.com/condor-legion/condor-stats/internal/stats"
)

var (
	dbPath string

	metricFlag    string
	periodFlag    string
	daysFlag      int
	eventsFlag    int
	weekOffFlag   int
	limitFlag     int
	condorFlag    bool
	thresholdFlag int
)

var rootCmd = &cobra.Command{
	Use:   "statsctl",
	Short: "Condor clan statistics reports",
	Long:  "Render leaderboards, inactivity and weekly qualification reports from the stats database.",
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print a member leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := svc.Leaderboard(cmd.Context(), service.LeaderboardQuery{
			Metric: metricFlag,
			Window: stats.WindowQuery{
				Period:     periodFlag,
				Days:       daysFlag,
				Events:     eventsFlag,
				WeekOffset: weekOffFlag,
			},
			Limit:  limitFlag,
			Condor: condorFlag,
		})
		if err != nil {
			return err
		}
		report.PrintLeaderboard(os.Stdout, rep)
		return nil
	},
}

var gulagCmd = &cobra.Command{
	Use:   "gulag",
	Short: "Print the inactivity report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := svc.Gulag(cmd.Context(), thresholdFlag)
		if err != nil {
			return err
		}
		report.PrintGulag(os.Stdout, rep)
		return nil
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Print the full members report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := svc.MembersReport(cmd.Context())
		if err != nil {
			return err
		}
		report.PrintMembers(os.Stdout, rows)
		return nil
	},
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Print the weekly qualification standings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := svc.WeeklyScore(cmd.Context(), weekOffFlag)
		if err != nil {
			return err
		}
		report.PrintWeekly(os.Stdout, rep)
		return nil
	},
}

func openService() (*service.StatsService, *sql.DB, error) {
	log := logger.SetLevel(zerolog.WarnLevel)

	db, err := database.Open(dbPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	store := repository.NewStore(db, log)
	cfg := &config.Config{
		GulagThresholdDays: stats.DefaultGulagThresholdDays,
		LeaderboardLimit:   stats.DefaultLeaderboardLimit,
	}
	return service.NewStatsService(store, cfg, log), db, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "condor.db", "path to SQLite database")

	leaderboardCmd.Flags().StringVar(&metricFlag, "metric", "kills", "ranking metric (kills, score, kdr, combat, offense, defense, support, ascenso)")
	leaderboardCmd.Flags().StringVar(&periodFlag, "period", "", "time period (7d, 30d, all, week)")
	leaderboardCmd.Flags().IntVar(&daysFlag, "days", 0, "look back N days (1-365)")
	leaderboardCmd.Flags().IntVar(&eventsFlag, "events", 0, "last N matches instead of a time range")
	leaderboardCmd.Flags().IntVar(&weekOffFlag, "week-offset", 0, "weeks back from the current ISO week")
	leaderboardCmd.Flags().IntVar(&limitFlag, "limit", 0, "number of entries (1-50)")
	leaderboardCmd.Flags().BoolVar(&condorFlag, "condor", false, "apply the Condor qualification gate")

	gulagCmd.Flags().IntVar(&thresholdFlag, "threshold", -1, "inactivity threshold in days (-1 for the configured default)")

	weeklyCmd.Flags().IntVar(&weekOffFlag, "week-offset", 0, "weeks back from the current ISO week")

	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(gulagCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(weeklyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
