package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scttfrdmn/asgresume/pkg/app"
	"github.com/scttfrdmn/asgresume/pkg/config"
	"github.com/scttfrdmn/asgresume/pkg/logging"
	"github.com/scttfrdmn/asgresume/pkg/output"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	noColor      bool
	debug        bool

	v        = config.NewViper()
	settings *config.Settings

	// appOptions are passed to app.Build by every command.
	appOptions []app.Option
)

var rootCmd = &cobra.Command{
	Use:   "asgresume",
	Short: "Resume Launch and Terminate on an Auto Scaling group in whichever account owns it",
	Long: `asgresume finds an Auto Scaling group across the accounts listed in the
scheduler config, waits for its instances to report healthy, and resumes the
Launch and Terminate processes that were suspended for a maintenance window.

Candidate roles come from the scheduler's DynamoDB config table by default.
SSM, a YAML file, or a static list can be used instead.

Examples:
  # Resume a group after maintenance
  asgresume resume --asg-name web-tier-asg

  # Only report which account owns the group
  asgresume locate --asg-name web-tier-asg

  # Use a fixed role list and a shorter health timeout
  asgresume resume --asg-name web-tier-asg --role-source static \
    --roles arn:aws:iam::111111111111:role/asg-scheduler --timeout 5m`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML settings file")
	flags.StringVarP(&outputFormat, "output", "o", output.FormatTable, "Output format (table, json, yaml)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colorized output")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")

	flags.String("region", "", "AWS region of the scheduler account")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("role-source", config.SourceDynamoDB, "Where candidate roles come from (dynamodb, ssm, file, static)")
	flags.StringSlice("roles", nil, "Candidate role ARNs for the static role source (comma-separated)")
	flags.String("config-table", config.DefaultConfigTable, "DynamoDB table holding the scheduler config")
	flags.String("ssm-parameter", "", "SSM parameter holding the role list")
	flags.String("roles-file", "", "YAML file holding cross_account_roles")
	flags.String("session-prefix", config.DefaultSessionPrefix, "Prefix of the assumed-role session name")

	bindFlags(flags, map[string]string{
		"region":         "region",
		"log-level":      "log_level",
		"role-source":    "role_source",
		"roles":          "roles",
		"config-table":   "config_table",
		"ssm-parameter":  "ssm_parameter",
		"roles-file":     "roles_file",
		"session-prefix": "session_prefix",
	})

	rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{output.FormatTable, output.FormatJSON, output.FormatYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	rootCmd.RegisterFlagCompletionFunc("role-source", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{config.SourceDynamoDB, config.SourceSSM, config.SourceFile, config.SourceStatic}, cobra.ShellCompDirectiveNoFileComp
	})
}

// bindFlags maps flag names to settings keys on the shared viper instance.
// Only flags the user set take precedence over env and file values.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func initRuntime(cmd *cobra.Command, args []string) error {
	s, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if err := logging.Setup(logging.Options{Level: s.LogLevel, Debug: debug, Console: true}); err != nil {
		return err
	}
	settings = s
	return nil
}

func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	return output.NewPrinter(cmd.OutOrStdout(), outputFormat, !noColor)
}

func buildApp(ctx context.Context) (*app.App, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings not loaded")
	}
	return app.Build(ctx, settings, appOptions...)
}
