// Package config reads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Provider identifies which mail API serves an account.
type Provider string

const (
	ProviderGraph Provider = "graph"
	ProviderGmail Provider = "gmail"
)

// Account is one mailbox to scan for bank notifications.
type Account struct {
	Email    string
	Provider Provider
}

// Config holds all application configuration.
type Config struct {
	BigQuery BigQueryConfig
	Google   GoogleConfig
	Graph    GraphConfig
	Gemini   GeminiConfig
	Export   ExportConfig

	// RulesPath points at the YAML ruleset resource.
	RulesPath string

	// NumEmails bounds how many recent messages are considered per run.
	NumEmails int

	// Accounts are the mailboxes to process, in order.
	Accounts []Account
}

type BigQueryConfig struct {
	ProjectID string
	Dataset   string
	Table     string
}

// GoogleConfig holds Gmail OAuth2 material.
type GoogleConfig struct {
	CredentialsFile string
	TokenDir        string
}

// GraphConfig holds Microsoft Graph OAuth2 material.
type GraphConfig struct {
	ClientID     string
	TenantID     string
	ClientSecret string
}

type GeminiConfig struct {
	Model string
}

type ExportConfig struct {
	Bucket  string
	RateURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		BigQuery: BigQueryConfig{
			ProjectID: getEnv("BQ_PROJECT_ID", ""),
			Dataset:   getEnv("BQ_DATASET", "bancomail"),
			Table:     getEnv("BQ_TRANSACTIONS_TABLE", "transactions"),
		},
		Google: GoogleConfig{
			CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "google_credentials.json"),
			TokenDir:        getEnv("GOOGLE_TOKEN_DIR", "google_tokens"),
		},
		Graph: GraphConfig{
			ClientID:     getEnv("MS_CLIENT_ID", ""),
			TenantID:     getEnv("MS_TENANT_ID", "consumers"),
			ClientSecret: getEnv("MS_CLIENT_SECRET", ""),
		},
		Gemini: GeminiConfig{
			Model: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Export: ExportConfig{
			Bucket:  getEnv("EXPORT_BUCKET", ""),
			RateURL: getEnv("EXPORT_RATE_URL", "https://open.er-api.com/v6/latest/USD"),
		},
		RulesPath: getEnv("RULES_PATH", "config/rules.yaml"),
		NumEmails: getEnvAsInt("NUM_EMAILS", 20),
	}

	if cfg.BigQuery.ProjectID == "" {
		return nil, errors.New("BQ_PROJECT_ID is required")
	}

	accounts, err := parseAccounts(getEnv("ACCOUNTS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	return cfg, nil
}

// parseAccounts parses the ACCOUNTS variable, a comma-separated list of
// email=provider pairs, e.g. "me@gmail.com=gmail,me@outlook.com=graph".
func parseAccounts(raw string) ([]Account, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var accounts []Account
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, provider, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("config: account entry %q: want email=provider", entry)
		}
		p := Provider(strings.ToLower(strings.TrimSpace(provider)))
		if p != ProviderGraph && p != ProviderGmail {
			return nil, fmt.Errorf("config: account %q: unknown provider %q", email, provider)
		}
		accounts = append(accounts, Account{
			Email:    strings.TrimSpace(email),
			Provider: p,
		})
	}
	return accounts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
