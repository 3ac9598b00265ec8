package cli

import (
	"context"
	"fmt"

	"github.com/buemura/zapscan/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFlag    string
	outputFlag    string
	verboseFlag   bool
	logFormatFlag string
	zapURLFlag    string
	apiKeyFlag    string
	traceFlag     bool
)

// appConfig holds the loaded configuration, available after PersistentPreRunE.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "zapscan",
	Short: "zapscan: authenticated ZAP scans with remediation guidance",
	Long: `zapscan drives a running ZAP instance through its JSON API: it scopes a
context, sets up authentication, crawls, waits for passive analysis, runs
an active scan with a chosen policy and turns the alerts into remediation
guidance.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.Config
			err error
		)
		if configFlag != "" {
			cfg, err = config.LoadFromFile(configFlag)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		config.ApplyFlags(cfg, cmd)
		outputFlag = cfg.OutputFormat
		appConfig = cfg

		logger = newLogger(cmd.ErrOrStderr(), cfg.LogFormat, verboseFlag)
		if traceFlag {
			tracerProvider = newTracerProvider(logger)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tracerProvider == nil {
			return nil
		}
		err := tracerProvider.Shutdown(context.Background())
		tracerProvider = nil
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.zapscan.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "output format: table, json, markdown, html, pdf")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().StringVar(&zapURLFlag, "zap-url", "http://localhost:8080", "ZAP API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "ZAP API key")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "log a span for every scan phase")

	rootCmd.AddCommand(versionCmd)
}
