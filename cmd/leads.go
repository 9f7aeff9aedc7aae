package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-cli/internal/store"
)

var (
	leadsMinScore float64
	leadsLimit    int
	leadsOffset   int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List stored leads, newest first",
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

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			MinFinalScore: leadsMinScore,
			Limit:         leadsLimit,
			Offset:        leadsOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	},
}

func init() {
	leadsCmd.Flags().Float64Var(&leadsMinScore, "min-score", 0, "minimum final score")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 100, "max leads to list")
	leadsCmd.Flags().IntVar(&leadsOffset, "offset", 0, "leads to skip")
	rootCmd.AddCommand(leadsCmd)
}
