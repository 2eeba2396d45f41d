package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowtimer/internal/timer"
)

func newDurationsCommand(opts *options) *cobra.Command {
	var pomodoro, short, long, goal int

	cmd := &cobra.Command{
		Use:   "durations",
		Short: "Show or change phase lengths and the daily goal",
		Example: `  focusctl durations
  focusctl durations --pomodoro 50 --short 10
  focusctl durations --goal 180`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := opts.store()
			durations := timer.LoadDurations(cmd.Context(), store, errLogger(cmd))

			flags := cmd.Flags()
			changed := false
			if flags.Changed("pomodoro") {
				durations.Pomodoro = pomodoro
				changed = true
			}
			if flags.Changed("short") {
				durations.ShortBreak = short
				changed = true
			}
			if flags.Changed("long") {
				durations.LongBreak = long
				changed = true
			}
			if changed {
				if err := store.SaveDurations(cmd.Context(), durations); err != nil {
					return err
				}
			}
			if flags.Changed("goal") {
				if err := store.SaveDailyGoal(goal); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pomodoro     %3d min\n", durations.Pomodoro)
			fmt.Fprintf(out, "short break  %3d min\n", durations.ShortBreak)
			fmt.Fprintf(out, "long break   %3d min\n", durations.LongBreak)
			fmt.Fprintf(out, "daily goal   %3d min\n", store.DailyGoal())
			return nil
		},
	}

	cmd.Flags().IntVar(&pomodoro, "pomodoro", 0, "pomodoro length in minutes")
	cmd.Flags().IntVar(&short, "short", 0, "short break length in minutes")
	cmd.Flags().IntVar(&long, "long", 0, "long break length in minutes")
	cmd.Flags().IntVar(&goal, "goal", 0, "daily focus goal in minutes")
	return cmd
}
