/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"senkyo/internal/cache"
	"senkyo/internal/config"
	"senkyo/internal/news"
	"senkyo/internal/pipeline"
	"senkyo/internal/predict"
	"senkyo/internal/refdata"
	"senkyo/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "senkyo",
	Short: "Senkyo is an election prediction service for the Japanese House of Representatives.",
	Long: `Senkyo retrieves recent election news through a search-augmented model,
generates per-prefecture seat and district predictions with a second model,
caches the results, and serves them to the dashboard frontend.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.senkyo.yaml)")
}

// app bundles the wired dependency graph shared by the subcommands.
type app struct {
	cfg          *config.Config
	store        store.Store
	newsCache    *news.Cache
	predictions  *cache.PredictionCache
	orchestrator *pipeline.Orchestrator
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp loads configuration and wires every component. Commands that
// only touch the cache pass needClients=false so missing API keys are not
// fatal for them.
func buildApp(ctx context.Context, needClients bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	kv, err := store.NewSQLiteStore(cfg.Cache.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	a := &app{
		cfg:         cfg,
		store:       kv,
		newsCache:   news.NewCache(kv),
		predictions: cache.New(kv),
	}
	if !needClients {
		return a, nil
	}

	newsClient, err := news.NewClient(cfg.Perplexity)
	if err != nil {
		a.close()
		return nil, err
	}

	llm, err := predict.NewGeminiClient(ctx, cfg.Gemini)
	if err != nil {
		a.close()
		return nil, err
	}

	roster, err := refdata.LoadRoster()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load candidate roster: %w", err)
	}

	policy := predict.DefaultRetryPolicy()
	if cfg.Refresh.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Refresh.MaxAttempts
	}
	generator := predict.NewGenerator(llm, roster, policy)

	a.orchestrator = pipeline.New(newsClient, generator, a.newsCache, a.predictions, cfg.Refresh.Concurrency)
	return a, nil
}
