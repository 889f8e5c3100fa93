// Package pipeline implements the notification ingestion pipeline: body
// extraction, shape classification, field extraction, record assembly,
// per-mailbox deduplication and categorization.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tpoblete/bancomail/internal/logger"
	"github.com/tpoblete/bancomail/internal/mail"
	"github.com/tpoblete/bancomail/internal/rules"
)

// TransactionStore is the persistence boundary of the pipeline. The store is
// append-only; records are never updated after insertion.
type TransactionStore interface {
	// ListTransactionIDs returns the ids already stored for one mailbox owner.
	ListTransactionIDs(ctx context.Context, userEmail string) (map[string]struct{}, error)

	// InsertTransactions appends records to the store.
	InsertTransactions(ctx context.Context, records []*TransactionRecord) error
}

// Report summarizes one pipeline run over one mailbox.
type Report struct {
	// MessagesSeen counts every fetched message, recognized or not.
	MessagesSeen int

	// RecordsParsed counts messages that produced a valid record.
	RecordsParsed int

	// RecordsNew counts records that survived deduplication and were stored.
	RecordsNew int
}

// Pipeline runs the full ingestion flow for one mailbox at a time.
type Pipeline struct {
	parser      Parser
	categorizer Categorizer
	store       TransactionStore
}

// New creates a pipeline over the given ruleset and store.
func New(rs *rules.Ruleset, store TransactionStore) *Pipeline {
	return &Pipeline{
		parser:      NewParser(rs),
		categorizer: NewCategorizer(rs),
		store:       store,
	}
}

// Run fetches up to limit recent messages for owner, parses and categorizes
// them, drops already-stored records and appends the rest. A message that
// cannot be parsed skips only that message; a fetch, listing or insert
// failure aborts the run with no partial insert.
func (p *Pipeline) Run(ctx context.Context, src mail.Source, owner string, limit int) (Report, error) {
	log := logger.FromContext(ctx).With().Str("owner", owner).Logger()
	var report Report

	messages, err := src.FetchMessages(ctx, owner, limit)
	if err != nil {
		return report, fmt.Errorf("pipeline: fetch messages for %s: %w", owner, err)
	}
	report.MessagesSeen = len(messages)

	existing, err := p.store.ListTransactionIDs(ctx, owner)
	if err != nil {
		return report, fmt.Errorf("pipeline: list stored ids for %s: %w", owner, err)
	}

	var records []*TransactionRecord
	for _, msg := range messages {
		rec, err := p.parser.Parse(msg)
		if errors.Is(err, ErrUnrecognized) {
			log.Debug().Str("message_id", msg.ID).Str("subject", msg.Subject).
				Msg("skipping unrecognized message")
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.ID).
				Msg("skipping message that failed extraction")
			continue
		}
		p.categorizer.Categorize(rec)
		records = append(records, rec)
	}
	report.RecordsParsed = len(records)

	fresh := FilterNew(records, existing)
	report.RecordsNew = len(fresh)

	if len(fresh) > 0 {
		if err := p.store.InsertTransactions(ctx, fresh); err != nil {
			return report, fmt.Errorf("pipeline: insert transactions for %s: %w", owner, err)
		}
	}

	log.Info().
		Int("messages_seen", report.MessagesSeen).
		Int("records_parsed", report.RecordsParsed).
		Int("records_new", report.RecordsNew).
		Msg("mailbox sync finished")
	return report, nil
}
