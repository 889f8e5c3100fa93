package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tpoblete/bancomail/internal/config"
	infraBQ "github.com/tpoblete/bancomail/internal/infra/bigquery"
	"github.com/tpoblete/bancomail/internal/logger"
	"github.com/tpoblete/bancomail/internal/mail"
	"github.com/tpoblete/bancomail/internal/mail/gmail"
	"github.com/tpoblete/bancomail/internal/mail/graph"
	"github.com/tpoblete/bancomail/internal/pipeline"
	"github.com/tpoblete/bancomail/internal/report"
	"github.com/tpoblete/bancomail/internal/rules"
	"github.com/tpoblete/bancomail/internal/storage"
	"github.com/tpoblete/bancomail/internal/suggest"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		runSync(log)
	case "export":
		runExport(log)
	case "suggest":
		runSuggest(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Bancomail CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  sync      Ingest bank notification mail into BigQuery")
	fmt.Println("  export    Export stored transactions to an XLSX report")
	fmt.Println("  suggest   Propose categories for unmapped merchants")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	account := fs.String("account", "", "Sync only this mailbox (defaults to all configured accounts)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, rs, store := setup(ctx, log)
	defer store.Close()

	accounts := cfg.Accounts
	if *account != "" {
		accounts = nil
		for _, a := range cfg.Accounts {
			if a.Email == *account {
				accounts = []config.Account{a}
			}
		}
		if len(accounts) == 0 {
			log.Fatal().Str("account", *account).Msg("Account is not configured")
		}
	}
	if len(accounts) == 0 {
		log.Fatal().Msg("No accounts configured; set ACCOUNTS")
	}

	p := pipeline.New(rs, store)
	for _, a := range accounts {
		src, err := sourceFor(ctx, cfg, a)
		if err != nil {
			log.Fatal().Err(err).Str("account", a.Email).Msg("Failed to create mail source")
		}

		rep, err := p.Run(ctx, src, a.Email, cfg.NumEmails)
		if err != nil {
			log.Fatal().Err(err).Str("account", a.Email).Msg("Sync failed")
		}
		fmt.Printf("%s: %d messages, %d parsed, %d new\n",
			a.Email, rep.MessagesSeen, rep.RecordsParsed, rep.RecordsNew)
	}
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "transactions.xlsx", "Output XLSX path")
	upload := fs.Bool("upload", false, "Also upload the report to the export bucket")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, _, store := setup(ctx, log)
	defer store.Close()

	rows, err := store.ListTransactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	rate, err := report.NewRateFetcher(cfg.Export.RateURL).USDToCLP(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch exchange rate")
	}

	f, err := report.Build(rows, rate)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build report")
	}
	if err := f.SaveAs(*out); err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("Failed to write report")
	}
	fmt.Printf("Wrote %d transactions to %s\n", len(rows), *out)

	if *upload {
		if cfg.Export.Bucket == "" {
			log.Fatal().Msg("EXPORT_BUCKET is not set")
		}
		object := filepath.Base(*out)
		if err := storage.UploadFile(ctx, cfg.Export.Bucket, object, *out); err != nil {
			log.Fatal().Err(err).Msg("Upload failed")
		}
		fmt.Printf("Uploaded to gs://%s/%s\n", cfg.Export.Bucket, object)
	}
}

func runSuggest(log zerolog.Logger) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, rs, store := setup(ctx, log)
	defer store.Close()

	unmapped, err := store.ListUnmappedReasons(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list unmapped merchants")
	}
	if len(unmapped) == 0 {
		fmt.Println("Every stored merchant is categorized.")
		return
	}

	reasons := make([]string, 0, len(unmapped))
	for _, u := range unmapped {
		reasons = append(reasons, u.Reason)
	}

	proposals, err := suggest.New(cfg.Gemini.Model).SuggestCategories(ctx, reasons, knownCategories(rs))
	if err != nil {
		log.Fatal().Err(err).Msg("Suggestion failed")
	}

	// YAML fragment ready to paste under categories: in the rules file.
	fmt.Println("# proposed additions, review before adding to rules.yaml")
	fmt.Println("categories:")
	var unplaced []infraBQ.UnmappedReason
	for _, u := range unmapped {
		category := proposals[u.Reason]
		if category == "" {
			unplaced = append(unplaced, u)
			continue
		}
		fmt.Printf("  %s: %s  # seen %d times\n", u.Reason, category, u.Occurrences)
	}
	if len(unplaced) > 0 {
		fmt.Println("\n# no suggestion for:")
		for _, u := range unplaced {
			fmt.Printf("#   %s (seen %d times)\n", u.Reason, u.Occurrences)
		}
	}
}

func knownCategories(rs *rules.Ruleset) []string {
	set := make(map[string]bool)
	for _, c := range rs.Categories {
		set[c] = true
	}
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

func setup(ctx context.Context, log zerolog.Logger) (*config.Config, *rules.Ruleset, *infraBQ.Store) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	rs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ruleset")
	}

	store, err := infraBQ.NewStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	return cfg, rs, store
}

func sourceFor(ctx context.Context, cfg *config.Config, account config.Account) (mail.Source, error) {
	switch account.Provider {
	case config.ProviderGraph:
		return graph.NewClient(ctx, cfg.Graph.ClientID, cfg.Graph.TenantID, cfg.Graph.ClientSecret), nil
	case config.ProviderGmail:
		return gmail.NewClient(cfg.Google.CredentialsFile, cfg.Google.TokenDir), nil
	}
	return nil, fmt.Errorf("unknown provider %q for %s", account.Provider, account.Email)
}
