package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var engineVersionFlag bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of zapscan",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "zapscan version %s\n", version)
		if !engineVersionFlag {
			return nil
		}

		client, err := appConfig.ZAPClient(logger)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		v, err := client.Version(ctx)
		if err != nil {
			return fmt.Errorf("querying engine version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "zap version %s\n", v)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&engineVersionFlag, "engine", false, "also query the engine's version")
}
