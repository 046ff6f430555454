package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	newsPrefecture int
	newsForce      bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Work with the news retrieval layer",
}

var newsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and cache election news without generating a prediction",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		entry, cached, err := a.orchestrator.FetchNewsOnly(ctx, newsPrefecture, newsForce)
		if err != nil {
			return err
		}

		origin := "fetched"
		if cached {
			origin = "served from cache"
		}
		fmt.Printf("News %s (%d sources, retrieved %s)\n",
			origin, len(entry.Sources), entry.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Println(entry.Content)
		return nil
	},
}

func init() {
	newsFetchCmd.Flags().IntVarP(&newsPrefecture, "prefecture", "p", 0, "prefecture ID (1-47), 0 for national")
	newsFetchCmd.Flags().BoolVar(&newsForce, "force", false, "bypass the news cache")
	newsCmd.AddCommand(newsFetchCmd)
	rootCmd.AddCommand(newsCmd)
}
