package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowtimer/internal/model"
	"flowtimer/internal/report"
)

func newReportCommand(opts *options) *cobra.Command {
	var (
		days int
		out  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a PDF focus report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, closeDB, err := opts.openSessions()
			if err != nil {
				return err
			}
			defer closeDB()

			dashboard, inRange, err := opts.dashboard(cmd.Context(), sessions, days)
			if err != nil {
				return err
			}
			newestFirst := make([]model.SessionRecord, len(inRange))
			for i := range inRange {
				newestFirst[len(inRange)-1-i] = inRange[i]
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create report: %w", err)
			}
			if err := report.Write(file, report.Input{
				Owner:     localUser,
				Dashboard: dashboard,
				Sessions:  newestFirst,
				Location:  opts.now().Location(),
			}); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close report: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "number of days to cover (1-365)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination PDF file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
