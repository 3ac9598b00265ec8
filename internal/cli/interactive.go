package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/tui"
	"github.com/spf13/cobra"
)

var (
	logFileFlag string
	exportFlag  string
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"tui"},
	Short:   "Pick a policy and target, watch the scan and browse the results",
	Long: `Starts a terminal UI: choose a scan policy, enter a target URL, follow
the scan phase by phase and step through the alerts with their remediation
guidance. Press e on the results screen to export a JSON report.`,
	RunE: runInteractive,
}

func init() {
	f := interactiveCmd.Flags()
	f.StringVar(&logFileFlag, "log-file", "", "write logs to this file (the screen is taken by the UI)")
	f.StringVar(&exportFlag, "export", "zapscan-report.json", "path the results screen exports to")
	f.String("templates", "", "extra remediation templates (YAML)")
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	uiLogger := slog.New(slog.DiscardHandler)
	if logFileFlag != "" {
		f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		uiLogger = newLogger(f, appConfig.LogFormat, verboseFlag)
	}

	client, err := appConfig.ZAPClient(uiLogger)
	if err != nil {
		return err
	}
	policies, err := appConfig.PolicyManager()
	if err != nil {
		return err
	}
	catalog, err := appConfig.RemediationCatalog()
	if err != nil {
		return err
	}

	orchOpts := []scanner.Option{scanner.WithLogger(uiLogger)}
	if appConfig.ScriptDir != "" {
		orchOpts = append(orchOpts, scanner.WithScriptDir(appConfig.ScriptDir))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, tui.Options{
		Engine:              client,
		Policies:            policies,
		Mapper:              remediation.NewMapper(catalog, remediation.WithLogger(uiLogger)),
		ScanOptions:         appConfig.ScanOptions(),
		OrchestratorOptions: orchOpts,
		ExportPath:          exportFlag,
	})
}
