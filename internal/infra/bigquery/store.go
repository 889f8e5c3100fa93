// Package bigquery persists transaction records in a BigQuery table. The
// table is append-only; rows are inserted once and never updated.
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/tpoblete/bancomail/internal/pipeline"
)

// TransactionRow is the stored shape of a transaction record.
type TransactionRow struct {
	ID                        string         `bigquery:"id"`
	MailTimestampUTC          time.Time      `bigquery:"mail_timestamp_utc"`
	TransactionTimestampLocal civil.DateTime `bigquery:"transaction_timestamp_local"`
	Sender                    string         `bigquery:"sender"`
	Currency                  string         `bigquery:"currency"`
	Amount                    *big.Rat       `bigquery:"amount"`
	TransactionType           string         `bigquery:"transaction_type"`
	PaymentReason             bq.NullString  `bigquery:"payment_reason"`
	TransferType              bq.NullString  `bigquery:"transferation_type"`
	TransferSource            bq.NullString  `bigquery:"transferation_source"`
	TransferDestination       bq.NullString  `bigquery:"transferation_destination"`
	Content                   string         `bigquery:"content"`
	UserEmail                 string         `bigquery:"user_email"`
	Category                  bq.NullString  `bigquery:"category"`
}

func rowFromRecord(r *pipeline.TransactionRecord) *TransactionRow {
	return &TransactionRow{
		ID:                        r.ID,
		MailTimestampUTC:          r.MailTimestampUTC,
		TransactionTimestampLocal: r.TransactionTimestampLocal,
		Sender:                    r.Sender,
		Currency:                  string(r.Currency),
		Amount:                    r.Amount.Rat(),
		TransactionType:           string(r.TransactionType),
		PaymentReason:             nullString(r.PaymentReason),
		TransferType:              nullString(r.TransferType),
		TransferSource:            nullString(r.TransferSource),
		TransferDestination:       nullString(r.TransferDestination),
		Content:                   r.Content,
		UserEmail:                 r.UserEmail,
		Category:                  nullString(r.Category),
	}
}

func nullString(p *string) bq.NullString {
	if p == nil {
		return bq.NullString{}
	}
	return bq.NullString{StringVal: *p, Valid: true}
}

// Store is the BigQuery-backed transaction store.
type Store struct {
	client  *bq.Client
	dataset string
	table   string
}

var _ pipeline.TransactionStore = (*Store)(nil)

// NewStore creates a store with its own BigQuery client. Close releases it.
func NewStore(ctx context.Context, projectID, dataset, table string) (*Store, error) {
	client, err := bq.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create client: %w", err)
	}
	return WithClient(client, dataset, table), nil
}

// WithClient creates a store over an existing client. The caller keeps
// ownership of the client.
func WithClient(client *bq.Client, dataset, table string) *Store {
	return &Store{client: client, dataset: dataset, table: table}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// InsertTransactions appends records via the streaming inserter.
func (s *Store) InsertTransactions(ctx context.Context, records []*pipeline.TransactionRecord) error {
	rows := make([]*TransactionRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, rowFromRecord(r))
	}
	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("bigquery: insert %d transactions: %w", len(rows), err)
	}
	return nil
}

// ListTransactionIDs returns the ids already stored for one mailbox owner.
func (s *Store) ListTransactionIDs(ctx context.Context, userEmail string) (map[string]struct{}, error) {
	q := s.client.Query(fmt.Sprintf(
		"SELECT id FROM `%s.%s` WHERE user_email = @user_email", s.dataset, s.table))
	q.Parameters = []bq.QueryParameter{{Name: "user_email", Value: userEmail}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: list transaction ids: %w", err)
	}

	ids := make(map[string]struct{})
	for {
		var row struct {
			ID string `bigquery:"id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: scan transaction id: %w", err)
		}
		ids[row.ID] = struct{}{}
	}
	return ids, nil
}

// ListTransactions returns every stored row, newest mail first.
func (s *Store) ListTransactions(ctx context.Context) ([]*TransactionRow, error) {
	q := s.client.Query(fmt.Sprintf(
		"SELECT * FROM `%s.%s` ORDER BY mail_timestamp_utc DESC", s.dataset, s.table))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: list transactions: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: scan transaction: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// ListUnmappedReasons returns the distinct merchant descriptors of stored
// purchases that carry no category, with how often each occurs.
func (s *Store) ListUnmappedReasons(ctx context.Context) ([]UnmappedReason, error) {
	q := s.client.Query(fmt.Sprintf(
		`SELECT payment_reason AS reason, COUNT(*) AS occurrences
		 FROM `+"`%s.%s`"+`
		 WHERE category IS NULL AND payment_reason IS NOT NULL
		 GROUP BY payment_reason
		 ORDER BY occurrences DESC`, s.dataset, s.table))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: list unmapped reasons: %w", err)
	}

	var reasons []UnmappedReason
	for {
		var r UnmappedReason
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: scan unmapped reason: %w", err)
		}
		reasons = append(reasons, r)
	}
	return reasons, nil
}

// UnmappedReason is one merchant descriptor missing from the category table.
type UnmappedReason struct {
	Reason      string `bigquery:"reason"`
	Occurrences int64  `bigquery:"occurrences"`
}
