package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/archive"
	"torn_war_bot/internal/deployment"
	"torn_war_bot/internal/discord"
	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/health"
	"torn_war_bot/internal/metrics"
	"torn_war_bot/internal/notify"
	"torn_war_bot/internal/processing"
	"torn_war_bot/internal/sheets"
	"torn_war_bot/internal/torn"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// directMessagesPerSecond bounds notification DMs across all users
const directMessagesPerSecond = 1.0

func main() {
	app.SetupEnvironment()

	// Parse command line flags
	interval := flag.Duration("interval", 0, "Interval between war polls (e.g., 30s, 1m); overrides WAR_POLL_INTERVAL")
	runOnce := flag.Bool("once", false, "Poll once and exit (no Discord session, no scheduler)")
	flag.Parse()

	config, err := app.LoadConfig(!*runOnce)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *interval > 0 {
		config.UpdateInterval = *interval
	}

	log.Info().
		Dur("interval", config.UpdateInterval).
		Bool("run_once", *runOnce).
		Int("faction_id", config.TrackedFactionID).
		Msg("Starting Torn war bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	calls := metrics.NewAPICallTracker(m)

	tornClient := torn.NewClient(config.TornAPIKey,
		torn.WithVersion(torn.APIVersion(config.APIVersion)),
		torn.WithRequestsPerMinute(config.APIRequestsPerMinute),
		torn.WithCallTracker(calls),
	)
	cachedClient := processing.NewCachedTornClient(tornClient, processing.DefaultAPICacheConfig())

	stores, err := processing.NewStores(config.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}
	persisted, err := stores.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted state")
	}

	state := processing.NewAppState(processing.StateOptions{
		TrackedFactionID: config.TrackedFactionID,
		ClaimOverwrite:   config.ClaimOverwrite,
		Dedupe:           attack.DedupePolicy{Window: config.AttackDedupeWindow},
	}, persisted)
	prefs := notify.NewPreferences(persisted.Preferences, config.NotifyQuietPeriod)
	status := health.NewStatus(time.Now())

	exporters, closeExporters := buildExporters(ctx, config)
	defer closeExporters()

	service := processing.NewService(state, config.TrackedFactionID, processing.Dependencies{
		Torn:        cachedClient,
		Stores:      stores,
		Preferences: prefs,
		Exporters:   exporters,
		Status:      status,
		Metrics:     m,
	})

	if *runOnce {
		runOnceMode(ctx, service, m, calls)
		return
	}

	bot, err := discord.New(config.DiscordToken, config.ChannelID, config.TargetMessageTTL, service)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Discord bot")
	}
	if err := bot.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Discord bot")
	}
	defer func() {
		if err := bot.Stop(); err != nil {
			log.Warn().Err(err).Msg("Error closing Discord session")
		}
	}()
	status.SetBotName(bot.BotName())

	dispatcher := notify.NewDispatcher(prefs, bot, directMessagesPerSecond, stores.SavePreferences)
	service.Attach(bot, dispatcher)

	scheduler := processing.NewScheduler(m,
		processing.Job{
			Name:     "war_poll",
			Interval: config.UpdateInterval,
			Run: func(ctx context.Context) error {
				_, err := service.PollWar(ctx)
				return err
			},
		},
		processing.Job{
			Name:     "target_scan",
			Interval: config.TargetScanInterval,
			Run: func(ctx context.Context) error {
				_, err := service.ScanTargets(ctx)
				return err
			},
		},
		processing.Job{
			Name:     "cleanup",
			Interval: config.CleanupInterval,
			Run: func(ctx context.Context) error {
				calls.LogSessionSummary()
				calls.ResetSession()
				cachedClient.LogCacheStats()
				return bot.CleanupStaleMessages(ctx)
			},
		},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return health.NewServer(config.HealthAddr, status, m.Handler()).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
	}
	log.Info().Msg("Shutdown complete")
}

// runOnceMode polls the war, imports the held war's attacks and scans for
// targets a single time
func runOnceMode(ctx context.Context, service *processing.Service, m *metrics.Metrics, calls *metrics.APICallTracker) {
	processing.NewScheduler(m,
		processing.Job{
			Name: "war_poll",
			Run: func(ctx context.Context) error {
				_, err := service.PollWar(ctx)
				return err
			},
		},
		processing.Job{
			Name: "attack_import",
			Run: func(ctx context.Context) error {
				if service.CurrentWar() == nil {
					return nil
				}
				_, err := service.ImportAttacks(ctx)
				return err
			},
		},
		processing.Job{
			Name: "target_scan",
			Run: func(ctx context.Context) error {
				_, err := service.ScanTargets(ctx)
				return err
			},
		},
	).RunOnce(ctx)

	calls.LogSessionSummary()
	log.Info().Msg("Run-once mode: exiting after initial processing")
}

// buildExporters creates the configured end of war exporters. The returned
// func releases their connections.
func buildExporters(ctx context.Context, config *app.Config) ([]processing.WarExporterInterface, func()) {
	var exporters []processing.WarExporterInterface
	var closers []func() error

	if config.SpreadsheetID != "" {
		client, err := sheets.NewClient(ctx, config.CredentialsFile)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create sheets client, sheet export disabled")
		} else {
			exporters = append(exporters, sheets.NewWarReportExporter(client, config.SpreadsheetID))
		}
	}

	if config.BigQueryProject != "" && config.BigQueryDataset != "" {
		archiver, err := archive.NewBigQueryArchiver(ctx, config.BigQueryProject, config.BigQueryDataset, config.CredentialsFile)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create BigQuery client, archive disabled")
		} else {
			exporters = append(exporters, archiver)
			closers = append(closers, archiver.Close)
		}
	}

	if config.DeployURL != "" {
		deployer := deployment.NewSSHDeployer(config.DeployURL, config.DeployKeyFile)
		exporters = append(exporters, deployment.NewStatusPublisher(deployer))
		closers = append(closers, deployer.Close)
	}

	names := make([]string, 0, len(exporters))
	for _, e := range exporters {
		names = append(names, e.Name())
	}
	log.Info().Strs("exporters", names).Msg("Configured war exporters")

	return exporters, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Error closing exporter")
			}
		}
	}
}
