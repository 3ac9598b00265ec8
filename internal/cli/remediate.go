package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/buemura/zapscan/internal/output"
	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/spf13/cobra"
)

var inputFlag string

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Generate remediation guidance for saved scan results",
	Long: `Reads a scan result (or a JSON report written by "zapscan scan -o json")
and prints remediation guidance for its alerts without contacting ZAP.`,
	Example: `  zapscan scan --target https://app.example.com -o json --output-file report.json
  zapscan remediate --input report.json -o markdown
  cat report.json | zapscan remediate --input -`,
	RunE: runRemediate,
}

func init() {
	remediateCmd.Flags().StringVarP(&inputFlag, "input", "i", "", `scan result JSON file, or "-" for stdin (required)`)
	remediateCmd.Flags().String("templates", "", "extra remediation templates (YAML)")
	remediateCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "write the report to a file instead of stdout")
	remediateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(remediateCmd)
}

func runRemediate(cmd *cobra.Command, args []string) error {
	formatter, err := output.GetFormatter(outputFlag)
	if err != nil {
		return err
	}

	var data []byte
	if inputFlag == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(inputFlag)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result, err := decodeResult(data)
	if err != nil {
		return err
	}

	catalog, err := appConfig.RemediationCatalog()
	if err != nil {
		return err
	}
	report := output.NewReport(result, remediation.NewMapper(catalog, remediation.WithLogger(logger)))
	return writeReport(cmd, formatter, report)
}

// decodeResult accepts either a bare scan result or a JSON report wrapping one.
func decodeResult(data []byte) (*types.ScanResult, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("input is empty")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}
	if inner, ok := envelope["result"]; ok {
		data = inner
	}

	var result types.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
