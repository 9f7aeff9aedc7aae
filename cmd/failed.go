package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	failedLimit int
	failedClear string
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List or clear leads in the failed-lead queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if failedClear != "" {
			if err := st.ClearFailure(ctx, failedClear); err != nil {
				return eris.Wrap(err, "clear failed lead")
			}
			zap.L().Info("failed lead cleared", zap.String("url", failedClear))
			return nil
		}

		failures, err := st.ListFailures(ctx, failedLimit)
		if err != nil {
			return eris.Wrap(err, "list failed leads")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(failures)
	},
}

func init() {
	failedCmd.Flags().IntVar(&failedLimit, "limit", 100, "max entries to list")
	failedCmd.Flags().StringVar(&failedClear, "clear", "", "remove the entry for this profile URL")
	rootCmd.AddCommand(failedCmd)
}
