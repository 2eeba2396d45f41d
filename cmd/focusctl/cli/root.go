// Package cli implements focusctl, a terminal front end that runs the focus
// timer locally against the same SQLite history as the server.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"flowtimer/internal/config"
	"flowtimer/internal/db"
	"flowtimer/internal/model"
	"flowtimer/internal/prefs"
	"flowtimer/internal/repository"
	"flowtimer/internal/stats"
)

const (
	appName = "flowtimer"
	// localUser owns every session recorded from the terminal.
	localUser = "local"
)

type options struct {
	cfg           config.Config
	dbPath        string
	durationsFile string
	now           func() time.Time
}

func NewRootCommand() *cobra.Command {
	opts := &options{now: time.Now}

	root := &cobra.Command{
		Use:   "focusctl",
		Short: "focusctl runs flowtimer focus sessions from the terminal",
		Long: `focusctl runs pomodoros and breaks locally, records them in the
flowtimer database and prints the same statistics as the web dashboard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			if opts.dbPath == "" {
				opts.dbPath = cfg.DBPath
			}
			if opts.durationsFile == "" {
				opts.durationsFile = cfg.DurationsFile
			}
			if opts.durationsFile == "" {
				path, err := prefs.DefaultPath(appName)
				if err != nil {
					return err
				}
				opts.durationsFile = path
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from DB_PATH)")
	root.PersistentFlags().StringVar(&opts.durationsFile, "durations-file", "", "YAML file holding phase lengths")

	root.AddCommand(
		newRunCommand(opts),
		newDurationsCommand(opts),
		newStatsCommand(opts),
		newReportCommand(opts),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) store() *prefs.FileStore {
	return prefs.NewFileStore(o.durationsFile)
}

// openSessions opens the database, applying pending migrations first.
func (o *options) openSessions() (*repository.SessionRepository, func(), error) {
	database, err := db.OpenSQLite(o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.RunMigrations(database, db.MigrationSource(o.cfg.MigrationsDir)); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return repository.NewSessionRepository(database), func() { _ = database.Close() }, nil
}

// dashboard mirrors the server's dashboard for the local user, with the
// daily goal taken from the durations file.
func (o *options) dashboard(ctx context.Context, sessions *repository.SessionRepository, days int) (stats.Dashboard, []model.SessionRecord, error) {
	if days < 1 || days > 365 {
		return stats.Dashboard{}, nil, fmt.Errorf("--days must be between 1 and 365")
	}
	now := o.now()
	history, err := sessions.FetchHistory(ctx, localUser, stats.MaxLookbackDays+1, now)
	if err != nil {
		return stats.Dashboard{}, nil, err
	}
	inRange := stats.InRange(history.Sessions, days, now)
	dashboard := stats.Summarize(model.History{
		Sessions: inRange,
		Daily:    history.Daily,
	}, days, o.store().DailyGoal(), now)
	return dashboard, inRange, nil
}

func errLogger(cmd *cobra.Command) *log.Logger {
	return log.New(cmd.ErrOrStderr(), "focusctl: ", 0)
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
