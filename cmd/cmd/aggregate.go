package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"senkyo/internal/aggregate"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rebuild the national forecast from cached prefecture predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		pred, err := aggregate.New(a.predictions).Run(ctx)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(pred.NationalSummary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("Aggregated %d prefectures into the national forecast:\n%s\n",
			len(pred.PrefecturePredictions), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}
