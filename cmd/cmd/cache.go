package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"senkyo/internal/refdata"
)

var (
	clearNews        bool
	clearPredictions bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the news and prediction caches",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the caches currently hold",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.newsCache.Count(ctx)
		if err != nil {
			return err
		}
		newsStatus, err := a.newsCache.Status(ctx, refdata.Prefectures)
		if err != nil {
			return err
		}
		withNews := 0
		for _, ns := range newsStatus {
			if ns.HasCached {
				withNews++
			}
		}

		predStatus, err := a.predictions.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("News cache:       %d entries, %d/%d prefectures covered\n",
			entries, withNews, len(refdata.Prefectures))
		fmt.Printf("Prediction cache: %d/%d prefectures cached\n",
			len(predStatus.PrefectureIDs), len(refdata.Prefectures))
		if predStatus.NationalCachedAt != "" {
			fmt.Printf("National slot:    cached at %s\n", predStatus.NationalCachedAt)
		} else {
			fmt.Println("National slot:    empty")
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached news, predictions, or both",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// No selector means clear everything.
		news := clearNews || !clearPredictions
		predictions := clearPredictions || !clearNews

		a, err := buildApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		if news {
			deleted, err := a.newsCache.ClearAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d news records\n", deleted)
		}
		if predictions {
			deleted, err := a.predictions.ClearPrefectures(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d prediction records\n", deleted)
		}
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&clearNews, "news", false, "clear only the news cache")
	cacheClearCmd.Flags().BoolVar(&clearPredictions, "predictions", false, "clear only the prediction cache")
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
