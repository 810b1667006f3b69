package cmd

import (
	"github.com/spf13/cobra"

	awsclient "github.com/scttfrdmn/asgresume/pkg/aws"
	"github.com/scttfrdmn/asgresume/pkg/output"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the configured cross-account roles",
	Long: `Roles loads the candidate role list from the configured source and prints
each role with the account id parsed from its ARN. No role is assumed.`,
	RunE: runRoles,
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}

func runRoles(cmd *cobra.Command, args []string) error {
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

	roles, err := a.Roles(ctx)
	if err != nil {
		return err
	}
	return printer.PrintRoles(roleRows(roles))
}

func roleRows(roles []string) []output.RoleRow {
	rows := make([]output.RoleRow, 0, len(roles))
	for _, role := range roles {
		row := output.RoleRow{Role: role}
		accountID, err := awsclient.AccountFromRoleARN(role)
		if err != nil {
			row.Error = err.Error()
		}
		row.AccountID = accountID
		rows = append(rows, row)
	}
	return rows
}
