package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"senkyo/internal/pipeline"
)

var (
	refreshPrefecture int
	refreshAll        bool
	refreshFast       bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Regenerate predictions from fresh news",
	Long: `Force-refresh the prediction for one prefecture, or for all 47 with
--all. A full refresh runs prefectures concurrently and rebuilds the
national aggregate afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		if refreshAll {
			report, err := a.orchestrator.RefreshAll(ctx, refreshFast)
			if err != nil {
				return err
			}
			fmt.Printf("Refreshed %d prefectures (%d failed) in %s\n",
				len(report.Succeeded), len(report.Failed), report.Duration.Round(time.Second))
			for id, msg := range report.Failed {
				fmt.Printf("  prefecture %d: %s\n", id, msg)
			}
			return nil
		}

		if refreshPrefecture < 0 || refreshPrefecture > 47 {
			return fmt.Errorf("prefecture must be between 1 and 47, or 0 for the national scope")
		}

		pred, err := a.orchestrator.Predict(ctx, pipeline.Request{
			PrefectureID: refreshPrefecture,
			ForceRefresh: true,
			FastMode:     refreshFast,
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(pred, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	refreshCmd.Flags().IntVarP(&refreshPrefecture, "prefecture", "p", 0, "prefecture ID (1-47), 0 for national")
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "refresh every prefecture")
	refreshCmd.Flags().BoolVar(&refreshFast, "fast", false, "skip live news retrieval and district detail")
	rootCmd.AddCommand(refreshCmd)
}
