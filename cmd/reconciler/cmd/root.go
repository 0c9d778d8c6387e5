package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-reconciler/cmd/reconciler/config"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Bank statement reconciliation tool",
	Long: `Reconciler matches transactions extracted from PDF bank statements, or
exported to a spreadsheet, against a second spreadsheet such as an accounting
ledger export. It reports which transactions match, which appear on one side
only, and the balance difference, and writes the results to Excel workbooks.

Examples:
  reconciler reconcile --pdf-dir statements/ --excel ledger.xlsx --output-dir results/
  reconciler reconcile --mode excel-excel --excel bank.xlsx --second-excel xero.csv
  reconciler version`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the command tree. The returned error is left for main to
// report through CLIErrorHandler.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentPreRunE = loadConfig
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String(config.KeyLogLevel, "warn", "log level: debug, info, warn, error")
	flags.String(config.KeyLogFormat, "text", "log format: text, json")

	for key, flag := range map[string]string{
		config.KeyVerbose:   "verbose",
		config.KeyLogLevel:  config.KeyLogLevel,
		config.KeyLogFormat: config.KeyLogFormat,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// loadConfig layers the config file and RECONCILER_* environment variables
// under the flags, then installs the global logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("check that the config file exists and is valid yaml, json or toml")
		}
		if viper.GetBool(config.KeyVerbose) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := setupLogger(); err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryConfiguration, errors.CodeInvalidConfig,
			"failed to configure logging")
	}
	return nil
}

func setupLogger() error {
	logConfig, err := config.CreateLoggerConfig(
		viper.GetString(config.KeyLogLevel),
		viper.GetString(config.KeyLogFormat),
		viper.GetBool(config.KeyVerbose),
	)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
