package config

import "testing"

func TestLoad(t *testing.T) {
	t.Setenv("BQ_PROJECT_ID", "my-project")
	t.Setenv("ACCOUNTS", "me@gmail.com=gmail, me@outlook.com=graph")
	t.Setenv("NUM_EMAILS", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BigQuery.ProjectID != "my-project" || cfg.BigQuery.Dataset != "bancomail" {
		t.Errorf("bigquery config = %+v", cfg.BigQuery)
	}
	if cfg.NumEmails != 50 {
		t.Errorf("NumEmails = %d, want 50", cfg.NumEmails)
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(cfg.Accounts))
	}
	if cfg.Accounts[1].Email != "me@outlook.com" || cfg.Accounts[1].Provider != ProviderGraph {
		t.Errorf("account[1] = %+v", cfg.Accounts[1])
	}
}

func TestLoadRequiresProject(t *testing.T) {
	t.Setenv("BQ_PROJECT_ID", "")
	if _, err := Load(); err == nil {
		t.Fatal("want error without BQ_PROJECT_ID")
	}
}

func TestParseAccounts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		count   int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"single", "a@b.com=gmail", 1, false},
		{"trailing comma", "a@b.com=graph,", 1, false},
		{"missing provider", "a@b.com", 0, true},
		{"unknown provider", "a@b.com=imap", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, err := parseAccounts(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(accounts) != tt.count {
				t.Errorf("len = %d, want %d", len(accounts), tt.count)
			}
		})
	}
}
