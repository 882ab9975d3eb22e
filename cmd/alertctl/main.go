// Command alertctl is the Pitchfinder operations CLI.
//
// Usage:
//
//	alertctl dispatch digest --frequency daily
//	alertctl dispatch instant --tournament 42
//	alertctl import --url https://partner.example/listings
//	alertctl geocode --postcode "SW1A 1AA"
//	alertctl purge-unverified --older-than 168h
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
	"github.com/pitchfinderuk/pitchfinder-api/internal/config"
	"github.com/pitchfinderuk/pitchfinder-api/internal/db"
	"github.com/pitchfinderuk/pitchfinder-api/internal/geocode"
	"github.com/pitchfinderuk/pitchfinder-api/internal/importer"
	"github.com/pitchfinderuk/pitchfinder-api/internal/mailer"
	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "alertctl",
		Short: "Pitchfinder alert operations CLI",
	}

	root.AddCommand(dispatchCmd())
	root.AddCommand(importCmd())
	root.AddCommand(geocodeCmd())
	root.AddCommand(purgeUnverifiedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// dispatch command
// --------------------------------------------------------------------------

func dispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Trigger alert dispatch cycles",
	}
	cmd.AddCommand(dispatchDigestCmd())
	cmd.AddCommand(dispatchInstantCmd())
	return cmd
}

func dispatchDigestCmd() *cobra.Command {
	var frequency string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Run one digest dispatch cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				dispatcher := buildDispatcher(cfg, pool)
				start := time.Now()
				res, err := dispatcher.RunDigestCycle(ctx, alerts.Frequency(frequency), time.Now().UTC())
				if err != nil {
					return err
				}
				logger.Info("Digest cycle finished",
					"frequency", frequency,
					"processed", res.Processed,
					"sent", res.Sent,
					"failed", res.Failed,
					"skipped", res.Skipped,
					"duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", "daily", "Digest frequency (daily, weekly)")
	return cmd
}

func dispatchInstantCmd() *cobra.Command {
	var tournamentID int64
	cmd := &cobra.Command{
		Use:   "instant",
		Short: "Run the instant alert pass for one tournament",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tournamentID == 0 {
				return fmt.Errorf("--tournament is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				dispatcher := buildDispatcher(cfg, pool)
				res, err := dispatcher.RunInstant(ctx, tournamentID, time.Now().UTC())
				if err != nil {
					return err
				}
				logger.Info("Instant pass finished",
					"tournament_id", tournamentID,
					"processed", res.Processed,
					"sent", res.Sent,
					"failed", res.Failed,
					"skipped", res.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&tournamentID, "tournament", 0, "Tournament ID")
	return cmd
}

// --------------------------------------------------------------------------
// import command
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	var urls []string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tournament drafts from partner listing pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sources := urls
				if len(sources) == 0 {
					sources = cfg.ImportSourceURLs
				}
				if len(sources) == 0 {
					return fmt.Errorf("no source URLs: pass --url or set IMPORT_SOURCE_URLS")
				}

				im := importer.New(tournaments.NewStore(pool.Pool), logger)
				start := time.Now()
				res, err := im.Run(ctx, sources)
				if err != nil {
					return err
				}
				logger.Info("Import finished",
					"pages", res.Pages,
					"found", res.Found,
					"upserted", res.Upserted,
					"skipped", res.Skipped,
					"duration", time.Since(start).Round(time.Second))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&urls, "url", nil, "Listing page URL (repeatable; defaults to IMPORT_SOURCE_URLS)")
	return cmd
}

// --------------------------------------------------------------------------
// geocode command
// --------------------------------------------------------------------------

func geocodeCmd() *cobra.Command {
	var postcode string
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Resolve a UK postcode to coordinates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if postcode == "" {
				return fmt.Errorf("--postcode is required")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			gc := geocode.New(cfg.GeocodeBaseURL,
				geocode.NewRedisCache(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, logger))
			res, err := gc.Forward(ctx, postcode)
			if err != nil {
				return err
			}
			logger.Info("Postcode resolved",
				"postcode", res.Postcode,
				"longitude", res.Longitude,
				"latitude", res.Latitude,
				"region", res.Region)
			return nil
		},
	}
	cmd.Flags().StringVar(&postcode, "postcode", "", "UK postcode")
	return cmd
}

// --------------------------------------------------------------------------
// purge-unverified command
// --------------------------------------------------------------------------

func purgeUnverifiedCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge-unverified",
		Short: "Delete subscriptions whose verification link was never clicked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := alerts.NewPGStore(pool.Pool)
				n, err := store.PurgeUnverifiedBefore(ctx, time.Now().UTC().Add(-olderThan))
				if err != nil {
					return err
				}
				logger.Info("Unverified subscriptions purged", "count", n, "older_than", olderThan)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum subscription age")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

func buildDispatcher(cfg *config.Config, pool *db.Pool) *alerts.Dispatcher {
	store := alerts.NewPGStore(pool.Pool)
	m := mailer.New(cfg, logger)
	if m == nil {
		logger.Info("Outbound email disabled (no SMTP_HOST); sends will be logged only")
	}
	return alerts.NewDispatcher(store, m, cfg.PublicURL, logger)
}

// run handles config loading, DB connection, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
