package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"flowtimer/internal/model"
	"flowtimer/internal/notify"
	"flowtimer/internal/timer"
)

func newRunCommand(opts *options) *cobra.Command {
	var (
		mode      string
		intention string
		bellOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one phase with a live countdown",
		Long: `run starts a single phase and counts it down in the terminal. A
finished phase is recorded in the database and announced with a desktop
notification, or the terminal bell when no session bus is available.
Interrupting pauses the timer and exits without recording.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := model.ParseMode(mode)
			if err != nil {
				return err
			}
			if utf8.RuneCountInString(intention) > 200 {
				return fmt.Errorf("--intention must be at most 200 characters")
			}

			sessions, closeDB, err := opts.openSessions()
			if err != nil {
				return err
			}
			defer closeDB()

			logger := errLogger(cmd)
			out := cmd.OutOrStdout()
			audio, closeAudio := notifier(out, logger, bellOnly)
			defer closeAudio()

			store := opts.store()
			durations := timer.LoadDurations(cmd.Context(), store, logger)
			machine := timer.NewMachine(timer.NewState(durations), timer.Deps{
				Audio:     audio,
				Recorder:  sessions.Recorder(localUser),
				Durations: store,
				Logger:    logger,
				Clock:     opts.now,
			}, timer.Options{
				TickInterval:  opts.cfg.TickInterval,
				RecordTimeout: opts.cfg.RecordTimeout,
			})
			// Close waits for the session write, so it runs before closeDB.
			defer machine.Close()

			if _, err := machine.SwitchMode(selected); err != nil {
				return err
			}
			if intention != "" {
				machine.SetIntention(intention)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := machine.Subscribe(16)
			countdown(out, machine.Start())
			for {
				select {
				case <-ctx.Done():
					snapshot := machine.Pause()
					fmt.Fprintf(out, "\nstopped with %s left\n", clock(snapshot.RemainingSeconds))
					return nil
				case event, ok := <-events:
					if !ok {
						return nil
					}
					if phaseEnded(event.Effects) {
						fmt.Fprintf(out, "\r%s done, next up: %s\n", selected, event.Snapshot.Mode)
						return nil
					}
					countdown(out, event.Snapshot)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(model.ModePomodoro), "phase to run: pomodoro, shortBreak or longBreak")
	cmd.Flags().StringVarP(&intention, "intention", "i", "", "what this pomodoro is for")
	cmd.Flags().BoolVar(&bellOnly, "bell", false, "skip desktop notifications and ring the terminal bell")
	return cmd
}

// notifier prefers desktop popups and falls back to the bell.
func notifier(out io.Writer, logger *log.Logger, bellOnly bool) (timer.AudioNotifier, func()) {
	if bellOnly {
		return notify.NewBell(out), func() {}
	}
	desktop, err := notify.NewDesktop(func(err error) {
		logger.Printf("desktop notification: %v", err)
	})
	if err != nil {
		logger.Printf("%v; using the terminal bell", err)
		return notify.NewBell(out), func() {}
	}
	return desktop, func() { _ = desktop.Close() }
}

func countdown(out io.Writer, snapshot timer.Snapshot) {
	fmt.Fprintf(out, "\r%-10s %s ", snapshot.Mode, clock(snapshot.RemainingSeconds))
}

func phaseEnded(effects []timer.Effect) bool {
	for _, effect := range effects {
		if effect.Type == timer.EffectPhaseEnded {
			return true
		}
	}
	return false
}
