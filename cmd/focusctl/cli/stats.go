package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCommand(opts *options) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print focus statistics for recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, closeDB, err := opts.openSessions()
			if err != nil {
				return err
			}
			defer closeDB()

			dashboard, _, err := opts.dashboard(cmd.Context(), sessions, days)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "range\t%d days\n", dashboard.RangeDays)
			fmt.Fprintf(w, "focus\t%s\n", minutes(dashboard.TotalFocusMinutes))
			fmt.Fprintf(w, "today\t%d pomodoros, %s of %s (%.0f%%)\n",
				dashboard.TodayPomodoros,
				minutes(dashboard.TodayFocusMinutes),
				minutes(dashboard.DailyGoalMinutes),
				dashboard.GoalProgress*100,
			)
			fmt.Fprintf(w, "streak\t%d days (best %d)\n", dashboard.Streak, dashboard.LongestStreak)
			fmt.Fprintf(w, "consistency\t%d%%\n", dashboard.Consistency)
			fmt.Fprintf(w, "average pomodoro\t%d min\n", dashboard.AverageLengthMinutes)
			fmt.Fprintf(w, "focus ratio\t%d%%\n", dashboard.FocusRatio)
			fmt.Fprintf(w, "level\t%d (%d/%d min)\n", dashboard.Level.Level, dashboard.Level.Current, dashboard.Level.Needed)
			if len(dashboard.Badges) > 0 {
				labels := make([]string, 0, len(dashboard.Badges))
				for _, badge := range dashboard.Badges {
					labels = append(labels, badge.Label)
				}
				fmt.Fprintf(w, "badges\t%s\n", strings.Join(labels, ", "))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			for _, day := range dashboard.Timeline {
				fmt.Fprintf(out, "%s %-5d %s\n", day.Day, day.FocusSeconds/60, strings.Repeat("#", bar(day.FocusSeconds)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days to summarize (1-365)")
	return cmd
}

func minutes(total int) string {
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

// bar is one mark per 25 minutes of focus, capped to fit a terminal row.
func bar(focusSeconds int) int {
	marks := (focusSeconds + 750) / 1500
	if marks > 40 {
		return 40
	}
	return marks
}
