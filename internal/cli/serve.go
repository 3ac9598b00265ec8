package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buemura/zapscan/internal/metrics"
	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/web"
	"github.com/buemura/zapscan/internal/web/jobs"
	"github.com/spf13/cobra"
)

var (
	addrFlag        string
	concurrencyFlag int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the zapscan API server",
	Long:  "Serves a JSON API for starting, tracking and reporting scans, plus /health and /metrics.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8090", "listen address (host:port)")
	serveCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 1, "scans run at the same time")
	serveCmd.Flags().String("templates", "", "extra remediation templates (YAML)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	client, err := appConfig.ZAPClient(logger)
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

	recorder := metrics.New(true)
	orchOpts := []scanner.Option{
		scanner.WithLogger(logger),
		scanner.WithRecorder(recorder),
	}
	if appConfig.ScriptDir != "" {
		orchOpts = append(orchOpts, scanner.WithScriptDir(appConfig.ScriptDir))
	}
	if tracerProvider != nil {
		orchOpts = append(orchOpts, scanner.WithTracerProvider(tracerProvider))
	}

	manager := jobs.NewManager(
		jobs.OrchestratorFactory(client, orchOpts...),
		jobs.WithLogger(logger),
		jobs.WithMapper(remediation.NewMapper(catalog, remediation.WithLogger(logger))),
		jobs.WithConcurrency(concurrencyFlag),
		jobs.WithMaxJobs(appConfig.Server.MaxJobs),
		jobs.WithRunningGauge(recorder.SetJobsRunning),
	)

	s := web.NewServer(appConfig.Server.Addr, manager, policies, web.Options{
		Logger:       logger,
		Metrics:      recorder.Handler(),
		Health:       client.Version,
		ScanDefaults: appConfig.ScanOptions(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()
	fmt.Fprintf(cmd.OutOrStdout(), "zapscan API listening on %s (zap: %s)\n", appConfig.Server.Addr, appConfig.ZAP.APIURL)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
