// Command worker syncs all configured mailboxes on a schedule. Each tick
// enqueues one sync job per account; queue workers run the ingestion
// pipeline with retries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tpoblete/bancomail/internal/config"
	infraBQ "github.com/tpoblete/bancomail/internal/infra/bigquery"
	"github.com/tpoblete/bancomail/internal/jobs"
	"github.com/tpoblete/bancomail/internal/jobs/inmemory"
	"github.com/tpoblete/bancomail/internal/logger"
	"github.com/tpoblete/bancomail/internal/mail"
	"github.com/tpoblete/bancomail/internal/mail/gmail"
	"github.com/tpoblete/bancomail/internal/mail/graph"
	"github.com/tpoblete/bancomail/internal/pipeline"
	"github.com/tpoblete/bancomail/internal/rules"
)

const defaultSchedule = "@every 30m"

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if len(cfg.Accounts) == 0 {
		log.Fatal().Msg("No accounts configured; set ACCOUNTS")
	}

	rs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ruleset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := infraBQ.NewStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	p := pipeline.New(rs, store)
	handler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncMailboxJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("owner", syncJob.Owner).
			Str("provider", syncJob.Provider).
			Msg("Processing sync job")

		src, err := sourceFor(ctx, cfg, syncJob.Provider)
		if err != nil {
			return err
		}
		report, err := p.Run(ctx, src, syncJob.Owner, cfg.NumEmails)
		if err != nil {
			log.Error().Err(err).Str("job_id", syncJob.JobID).Msg("Sync job failed")
			return err
		}

		syncJob.MessagesSeen = report.MessagesSeen
		syncJob.RecordsNew = report.RecordsNew
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	schedule := os.Getenv("SYNC_SCHEDULE")
	if schedule == "" {
		schedule = defaultSchedule
	}

	scheduler := cron.New()
	enqueueAll := func() {
		for _, account := range cfg.Accounts {
			job := &jobs.SyncMailboxJob{
				Owner:    account.Email,
				Provider: string(account.Provider),
			}
			if err := jobQueue.PublishSyncMailbox(ctx, job); err != nil {
				log.Error().Err(err).Str("owner", account.Email).Msg("Failed to enqueue sync job")
			}
		}
	}
	if _, err := scheduler.AddFunc(schedule, enqueueAll); err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Invalid sync schedule")
	}

	log.Info().Str("schedule", schedule).Int("accounts", len(cfg.Accounts)).
		Msg("Worker service started")

	// One immediate pass so a fresh deployment does not wait a full interval.
	enqueueAll()
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	schedulerCtx := scheduler.Stop()
	<-schedulerCtx.Done()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

func sourceFor(ctx context.Context, cfg *config.Config, provider string) (mail.Source, error) {
	switch config.Provider(provider) {
	case config.ProviderGraph:
		return graph.NewClient(ctx, cfg.Graph.ClientID, cfg.Graph.TenantID, cfg.Graph.ClientSecret), nil
	case config.ProviderGmail:
		return gmail.NewClient(cfg.Google.CredentialsFile, cfg.Google.TokenDir), nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}
