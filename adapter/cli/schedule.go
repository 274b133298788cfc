package cli

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/chronoforge/internal/reporting"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/commands"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/infrastructure/projectfile"
	"github.com/spf13/cobra"
)

var (
	runOutputFormat string
	runOutputPath   string
)

var runCmd = &cobra.Command{
	Use:   "run <project-file>",
	Short: "Run a project file to a fixed point and report the schedule",
	Long: `Decode a project description (resources, tasks, dependencies,
calendars) from a JSON file, run it to a fixed point, and print the
resulting schedule.

The run always persists the project and a schedule snapshot, whether or
not it converged; a SchedulingError from a non-converging run is printed
and returned as a non-zero exit code.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.RunScheduleHandler == nil {
			return fmt.Errorf("scheduling engine not available")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open project file: %w", err)
		}
		defer f.Close()

		project, err := projectfile.Decode(f)
		if err != nil {
			return fmt.Errorf("decode project file: %w", err)
		}

		ctx := cmd.Context()
		result, runErr := app.RunScheduleHandler.Handle(ctx, commands.RunScheduleCommand{
			Project: project,
			UserID:  app.CurrentUserID,
		})
		if result == nil {
			return runErr
		}

		report, err := reporting.Render(result.Schedule)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}

		payload := report.JSON
		if runOutputFormat == "csv" {
			payload = report.CSV
		}

		if runOutputPath == "" || runOutputPath == "-" {
			if _, err := os.Stdout.Write(payload); err != nil {
				return err
			}
		} else if err := os.WriteFile(runOutputPath, payload, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if runErr != nil {
			return fmt.Errorf("schedule did not converge: %w", runErr)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runOutputFormat, "format", "json", "report format: json or csv")
	runCmd.Flags().StringVarP(&runOutputPath, "out", "o", "-", "output path, or - for stdout")
	rootCmd.AddCommand(runCmd)
}
