package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/asgresume/pkg/output"
)

var locateASGName string

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Report which candidate account holds a group",
	Long: `Locate assumes every candidate role and checks whether the Auto Scaling
group exists in that account. Nothing is polled or resumed.`,
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().StringVarP(&locateASGName, "asg-name", "n", "", "Auto Scaling group name (required)")
	locateCmd.MarkFlagRequired("asg-name")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	attempts, err := a.Locate(ctx, locateASGName)
	if err != nil {
		return err
	}

	rows := make([]output.AttemptRow, 0, len(attempts))
	found := 0
	for _, attempt := range attempts {
		if attempt.Found {
			found++
		}
		rows = append(rows, output.NewAttemptRow(attempt))
	}

	if err := printer.PrintAttempts(rows); err != nil {
		return err
	}
	if found == 0 {
		return fmt.Errorf("%s not found in any of %d candidate account(s)", locateASGName, len(attempts))
	}
	return nil
}
