package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-digest/internal/config"
	"github.com/Adda-Baaj/khobor-digest/internal/crawler"
	"github.com/Adda-Baaj/khobor-digest/internal/digest"
	"github.com/Adda-Baaj/khobor-digest/internal/harvest"
	"github.com/Adda-Baaj/khobor-digest/internal/history"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
	"github.com/Adda-Baaj/khobor-digest/internal/pipeline"
	"github.com/Adda-Baaj/khobor-digest/internal/store"
	"github.com/Adda-Baaj/khobor-digest/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-digest/pkg/providers"
	"github.com/Adda-Baaj/khobor-digest/pkg/publishers"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch candidates and update the stored digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				// No configured logger yet; report through the defaults.
				if fallback, logErr := logger.New(logger.Config{}); logErr == nil {
					fallback.ErrorObj("configuration rejected", "run_failed", map[string]any{
						"stage": "config",
						"error": err.Error(),
					})
					_ = fallback.Sync()
				}
				return err
			}
			log, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			if err := runDigest(cmd.Context(), cfg, log); err != nil {
				log.ErrorObj("digest run failed", "run_failed", map[string]any{
					"error": err.Error(),
				})
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("date", "", "Target date (YYYY-MM-DD); defaults to today minus target.offset_days")
	_ = ctx.viper.BindPFlag("target.date", cmd.Flags().Lookup("date"))

	return cmd
}

func runDigest(ctx context.Context, cfg config.Config, log logger.Logger) error {
	now := time.Now

	sinkOpts := store.SinkOptions{
		LockTimeout: cfg.Store.LockTimeout,
		S3:          store.S3Options{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint},
	}
	primary, err := store.OpenSink(ctx, cfg.Store.PrimaryPath, sinkOpts)
	if err != nil {
		return fmt.Errorf("open primary store: %w", err)
	}
	published, err := store.OpenSink(ctx, cfg.Store.PublishedPath, sinkOpts)
	if err != nil {
		return fmt.Errorf("open published store: %w", err)
	}

	client := httpclient.NewRestyClientWithAgent(cfg.Harvest.RequestTimeout, cfg.Harvest.UserAgent)
	harvester := harvest.NewHarvester(
		harvest.FileSources(cfg.Harvest.SourcesFile),
		providers.DefaultFetcherRegistry(client),
		log,
		harvest.WithEnricher(crawler.NewScraper(client, log)),
		harvest.WithMaxConcurrency(cfg.Harvest.MaxConcurrency),
	)

	deps := digest.Deps{
		Loader:    store.NewLoader(log, now),
		Acquirer:  harvester,
		Pipeline:  pipeline.New(log, pipeline.WithClock(now)),
		Persister: store.NewPersister(log),
		Primary:   primary,
		Published: published,
		Log:       log,
		Now:       now,
	}

	if cfg.Store.HistoryPath != "" {
		hist, err := history.Open(cfg.Store.HistoryPath)
		if err != nil {
			log.WarnObj("run history unavailable", "history_unavailable", map[string]any{
				"path":  cfg.Store.HistoryPath,
				"error": err.Error(),
			})
		} else {
			defer hist.Close()
			deps.History = hist
		}
	}

	if cfg.Publishers.File != "" {
		pubs, err := publishers.Load(ctx, cfg.Publishers.File, log)
		if err != nil {
			log.WarnObj("notifications unavailable", "notify_unavailable", map[string]any{
				"path":  cfg.Publishers.File,
				"error": err.Error(),
			})
		} else {
			deps.Publishers = pubs
		}
	}

	runner, err := digest.NewRunner(deps)
	if err != nil {
		return err
	}
	_, err = runner.Run(ctx, cfg.TargetDate(now()))
	return err
}
