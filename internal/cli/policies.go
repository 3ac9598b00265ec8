package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the available scan policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		policies, err := appConfig.PolicyManager()
		if err != nil {
			return err
		}

		type row struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Strength    string `json:"strength"`
			Threshold   string `json:"threshold"`
			Rules       []int  `json:"rules"`
		}
		var rows []row
		for _, name := range policies.Names() {
			p, err := policies.Get(name)
			if err != nil {
				return err
			}
			rows = append(rows, row{
				Name:        p.Name,
				Description: p.Description,
				Strength:    string(p.Strength),
				Threshold:   string(p.Threshold),
				Rules:       p.EnabledRules(),
			})
		}

		w := cmd.OutOrStdout()
		if strings.EqualFold(outputFlag, "json") {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Name", "Strength", "Threshold", "Rules", "Description"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, r := range rows {
			rules := "all"
			if len(r.Rules) > 0 {
				rules = strconv.Itoa(len(r.Rules))
			}
			table.Append([]string{r.Name, r.Strength, r.Threshold, rules, r.Description})
		}
		table.Render()
		fmt.Fprintf(w, "\n%d policies\n", len(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}
