package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/trialwatch/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull registry topics into the store",
	Long:  "Walks each topic's registry query page by page, normalizes and scores every study, and upserts the results.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		names, _ := cmd.Flags().GetStringSlice("topics")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		storeRaw, _ := cmd.Flags().GetBool("store-raw")

		// Topic problems are fatal before any store or network work.
		topics, err := loadTopics(names)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		syncer := pipeline.NewSyncer(st, initRegistry(), cfg.Pipeline)
		results, err := syncer.Run(ctx, pipeline.SyncOpts{
			Topics:   topics,
			MaxPages: maxPages,
			StoreRaw: storeRaw || cfg.Pipeline.StoreRaw,
		})
		for _, res := range results {
			fmt.Fprintf(os.Stdout, "%s: received %d, stored %d, skipped %d\n",
				res.Topic, res.Received, res.Stored, res.Skipped)
		}
		return err
	},
}

func init() {
	syncCmd.Flags().StringSlice("topics", nil, "topic names to sync (default: all topics in the topics file)")
	syncCmd.Flags().Int("max-pages", 0, "max registry pages per topic (0 uses pipeline.max_pages_per_topic)")
	syncCmd.Flags().Bool("store-raw", false, "keep the raw registry JSON alongside each trial")
	rootCmd.AddCommand(syncCmd)
}
