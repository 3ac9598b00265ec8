package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/internal/output"
	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	targetFlag       string
	policyFlag       string
	noActiveFlag     bool
	includeFlag      []string
	excludeFlag      []string
	resetContextFlag bool
	outputFileFlag   string

	authTypeFlag string
	authFlags    auth.Config
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full scan against a target",
	Long: `Creates a ZAP context scoped to the target, authenticates if requested,
spiders, waits for the passive scanner to drain, runs an active scan and
prints the alerts with remediation guidance.`,
	Example: `  zapscan scan --target https://app.example.com
  zapscan scan --target https://app.example.com --policy SQL-Injection -o json
  zapscan scan --target https://app.example.com --auth-type form \
      --login-url https://app.example.com/login --username admin --password secret \
      --username-field user --password-field pass`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVarP(&targetFlag, "target", "t", "", "target URL (required)")
	f.StringVar(&policyFlag, "policy", "", "scan policy name (see zapscan policies)")
	f.BoolVar(&noActiveFlag, "no-active", false, "skip the active scan")
	f.StringSliceVar(&includeFlag, "include", nil, "extra in-scope regex (repeatable)")
	f.StringSliceVar(&excludeFlag, "exclude", nil, "out-of-scope regex (repeatable)")
	f.BoolVar(&resetContextFlag, "reset-context", false, "remove an existing context with the same name first")
	f.StringVar(&outputFileFlag, "output-file", "", "write the report to a file instead of stdout")

	f.String("context", "", "context name")
	f.Duration("poll-interval", scanner.DefaultPollInterval, "status poll interval")
	f.Duration("spider-duration", scanner.DefaultSpiderDuration, "spider time budget")
	f.Int("spider-depth", scanner.DefaultSpiderDepth, "spider max depth (0 = unlimited)")
	f.Duration("passive-duration", scanner.DefaultPassiveDuration, "passive scan time budget")
	f.Duration("active-duration", scanner.DefaultActiveDuration, "active scan time budget")
	f.Int("threads", scanner.DefaultThreads, "active scan threads per host")
	f.String("templates", "", "extra remediation templates (YAML)")

	f.StringVar(&authTypeFlag, "auth-type", "", "authentication type: form, json, http-basic, http-digest, api-key, jwt, oauth2, certificate, script")
	f.StringVar(&authFlags.LoginURL, "login-url", "", "login URL (form, json, http)")
	f.StringVar(&authFlags.Username, "username", "", "username")
	f.StringVar(&authFlags.Password, "password", "", "password")
	f.StringVar(&authFlags.UsernameField, "username-field", "", "username parameter name")
	f.StringVar(&authFlags.PasswordField, "password-field", "", "password parameter name")
	f.StringVar(&authFlags.LoginRequestData, "login-data", "", "login request body template")
	f.StringVar(&authFlags.LoggedInIndicator, "logged-in", "", "logged-in indicator regex")
	f.StringVar(&authFlags.LoggedOutIndicator, "logged-out", "", "logged-out indicator regex")
	f.StringVar(&authFlags.HeaderName, "header-name", "", "API key header name")
	f.StringVar(&authFlags.HeaderValue, "header-value", "", "API key header value")
	f.StringVar(&authFlags.Token, "token", "", "JWT bearer token")
	f.StringVar(&authFlags.CertificatePath, "cert-path", "", "client certificate (PKCS12)")
	f.StringVar(&authFlags.CertificatePassword, "cert-password", "", "client certificate password")
	f.StringVar(&authFlags.ClientID, "client-id", "", "OAuth2 client id")
	f.StringVar(&authFlags.ClientSecret, "client-secret", "", "OAuth2 client secret")
	f.StringVar(&authFlags.TokenURL, "token-url", "", "OAuth2 token URL")
	f.StringVar(&authFlags.Scope, "scope", "", "OAuth2 scope")
	f.StringVar(&authFlags.ScriptPath, "script-path", "", "authentication script file")

	scanCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	formatter, err := output.GetFormatter(outputFlag)
	if err != nil {
		return err
	}

	opts, err := scanFlagOptions()
	if err != nil {
		return err
	}
	cfg, err := scanner.NewScanConfig(targetFlag, append(appConfig.ScanOptions(), opts...)...)
	if err != nil {
		return err
	}

	client, err := appConfig.ZAPClient(logger)
	if err != nil {
		return err
	}
	catalog, err := appConfig.RemediationCatalog()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchOpts := []scanner.Option{
		scanner.WithLogger(logger),
		scanner.OnTransition(progressPrinter(cmd.ErrOrStderr())),
	}
	if appConfig.ScriptDir != "" {
		orchOpts = append(orchOpts, scanner.WithScriptDir(appConfig.ScriptDir))
	}
	if tracerProvider != nil {
		orchOpts = append(orchOpts, scanner.WithTracerProvider(tracerProvider))
	}

	result, err := scanner.New(client, orchOpts...).Scan(ctx, cfg)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	report := output.NewReport(result, remediation.NewMapper(catalog, remediation.WithLogger(logger)))
	return writeReport(cmd, formatter, report)
}

// scanFlagOptions turns the scan-specific flags into options applied after
// the configured defaults.
func scanFlagOptions() ([]scanner.ScanOption, error) {
	var opts []scanner.ScanOption

	if authTypeFlag != "" {
		t, err := auth.ParseType(authTypeFlag)
		if err != nil {
			return nil, err
		}
		a := authFlags
		a.Type = t
		opts = append(opts, scanner.WithAuth(a))
	}
	if policyFlag != "" {
		policies, err := appConfig.PolicyManager()
		if err != nil {
			return nil, err
		}
		p, err := policies.Get(policyFlag)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scanner.WithPolicy(p))
	}
	if noActiveFlag {
		opts = append(opts, scanner.WithActiveScan(false))
	}
	if resetContextFlag {
		opts = append(opts, scanner.WithResetContext(true))
	}
	if len(includeFlag) > 0 {
		opts = append(opts, scanner.WithIncludePatterns(includeFlag...))
	}
	if len(excludeFlag) > 0 {
		opts = append(opts, scanner.WithExcludePatterns(excludeFlag...))
	}
	return opts, nil
}

func writeReport(cmd *cobra.Command, formatter output.Formatter, report output.Report) error {
	if outputFileFlag == "" {
		return formatter.Format(cmd.OutOrStdout(), report)
	}

	f, err := os.Create(outputFileFlag)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := formatter.Format(f, report); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", outputFileFlag)
	return nil
}

func progressPrinter(w io.Writer) func(scanner.Transition) {
	ok := color.New(color.FgCyan)
	failed := color.New(color.FgRed, color.Bold)
	return func(t scanner.Transition) {
		stamp := t.At.Format(time.TimeOnly)
		if t.To == scanner.StateFailed {
			failed.Fprintf(w, "[%s] %s -> %s: %v\n", stamp, t.From, t.To, t.Err)
			return
		}
		ok.Fprintf(w, "[%s] %s -> %s\n", stamp, t.From, t.To)
	}
}
