package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/trialwatch/internal/pipeline"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link PubMed literature to stored trials",
	Long:  "Searches PubMed's secondary-source index for each selected trial, stores the citations, and updates the per-trial literature summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !cfg.PubMed.Enabled {
			return eris.New("pubmed linking is disabled (pubmed.enabled=false)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		maxTrials, _ := cmd.Flags().GetInt("max-trials")
		all, _ := cmd.Flags().GetBool("all")

		linker := pipeline.NewLinker(st, initPubMed(), cfg.PubMed, actionableWindow(cfg.Pipeline))
		res, err := linker.Run(ctx, pipeline.LinkOpts{MaxTrials: maxTrials, All: all})
		if res != nil {
			fmt.Fprintf(os.Stdout, "checked %d trials (%d failed), %d citations\n",
				res.Checked, res.Failed, res.Citations)
		}
		return err
	},
}

func init() {
	linkCmd.Flags().Int("max-trials", 0, "max trials to link per run (0 uses pubmed.max_trials_per_run)")
	linkCmd.Flags().Bool("all", false, "link top-scored trials regardless of the readout window")
	rootCmd.AddCommand(linkCmd)
}
