package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/store"
)

var pushSnapshot string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a saved snapshot to the store and CRMs",
	Long:  "Re-sends the records of an earlier run, e.g. after the database was unreachable. Records are appended, so pushing a snapshot twice stores it twice.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		path := pushSnapshot
		if path == "" {
			path = cfg.Run.SnapshotPath
		}
		leads, err := store.ReadSnapshot(path)
		if err != nil {
			return eris.Wrap(err, "read snapshot")
		}
		if len(leads) == 0 {
			zap.L().Info("snapshot is empty", zap.String("path", path))
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var results []model.PushResult
		failed := 0
		for _, sink := range initSinks(st) {
			pr := pipeline.Push(ctx, sink, leads)
			if pr.Error != "" {
				failed++
			}
			results = append(results, pr)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
		if failed > 0 {
			return eris.Errorf("%d of %d sinks failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushSnapshot, "snapshot", "", "snapshot to push (default run.snapshot_path)")
	rootCmd.AddCommand(pushCmd)
}
