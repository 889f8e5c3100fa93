package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tpoblete/bancomail/internal/mail"
	"github.com/tpoblete/bancomail/internal/rules"
)

const testRulesYAML = `
senders:
  - enviodigital@bancochile.cl
  - serviciodetransferencias@bancochile.cl
forwarders:
  - relay@example.com
purchase_subjects:
  - "Compra con Tarjeta de Crédito"
  - "Compra con tarjeta de crédito"
payment_subjects:
  national: "Pago de Tarjeta de Crédito Nacional"
  international: "Pago de Tarjeta de Crédito Internacional"
transfer_exclusions:
  - "Aviso de transferencia de fondos"
categories:
  MERPAGO*UBER: Transporte
  UBER EATS: Comida - Rapida
payment_category: "Pago de Tarjeta de Crédito"
timezone: America/Santiago
`

func testRules(t *testing.T) *rules.Ruleset {
	t.Helper()
	rs, err := rules.Parse([]byte(testRulesYAML))
	if err != nil {
		t.Fatalf("parse test rules: %v", err)
	}
	return rs
}

func textMessage(id, sender, subject, body string) mail.Message {
	return mail.Message{
		ID:         id,
		Sender:     sender,
		Subject:    subject,
		ReceivedAt: time.Date(2024, 3, 15, 21, 50, 0, 0, time.UTC),
		SentAt:     time.Date(2024, 3, 15, 21, 45, 0, 0, time.UTC),
		Owner:      "owner@example.com",
		Body:       mail.Part{MimeType: mail.MimeText, Data: body},
	}
}

type fakeSource struct {
	messages []mail.Message
	err      error
}

func (s fakeSource) FetchMessages(_ context.Context, _ string, limit int) ([]mail.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.messages) {
		return s.messages[:limit], nil
	}
	return s.messages, nil
}

type memStore struct {
	ids       map[string]map[string]struct{}
	inserted  []*TransactionRecord
	listErr   error
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{ids: make(map[string]map[string]struct{})}
}

func (s *memStore) ListTransactionIDs(_ context.Context, userEmail string) (map[string]struct{}, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make(map[string]struct{}, len(s.ids[userEmail]))
	for id := range s.ids[userEmail] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *memStore) InsertTransactions(_ context.Context, records []*TransactionRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range records {
		owner := s.ids[r.UserEmail]
		if owner == nil {
			owner = make(map[string]struct{})
			s.ids[r.UserEmail] = owner
		}
		owner[r.ID] = struct{}{}
		s.inserted = append(s.inserted, r)
	}
	return nil
}

const purchaseBody = "Te informamos que se ha realizado una compra por $12.345 " +
	"con Tarjeta de Crédito ****1234 en MERPAGO*UBER el 15/03/2024 18:45."

func TestRunStoresNewTransactions(t *testing.T) {
	rs := testRules(t)
	store := newMemStore()
	p := New(rs, store)

	src := fakeSource{messages: []mail.Message{
		textMessage("m1", "enviodigital@bancochile.cl", "Compra con Tarjeta de Crédito", purchaseBody),
		textMessage("m2", "newsletter@shop.com", "Ofertas de la semana", "descuentos"),
	}}

	report, err := p.Run(context.Background(), src, "owner@example.com", 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.MessagesSeen != 2 || report.RecordsParsed != 1 || report.RecordsNew != 1 {
		t.Fatalf("report = %+v, want 2 seen, 1 parsed, 1 new", report)
	}

	rec := store.inserted[0]
	if rec.TransactionType != TypeCardPurchase {
		t.Errorf("type = %s, want %s", rec.TransactionType, TypeCardPurchase)
	}
	if rec.Category == nil || *rec.Category != "Transporte" {
		t.Errorf("category = %v, want Transporte", rec.Category)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	rs := testRules(t)
	store := newMemStore()
	p := New(rs, store)

	src := fakeSource{messages: []mail.Message{
		textMessage("m1", "enviodigital@bancochile.cl", "Compra con Tarjeta de Crédito", purchaseBody),
	}}

	if _, err := p.Run(context.Background(), src, "owner@example.com", 10); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := p.Run(context.Background(), src, "owner@example.com", 10)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.RecordsParsed != 1 || report.RecordsNew != 0 {
		t.Fatalf("second run report = %+v, want 1 parsed, 0 new", report)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("store holds %d records, want 1", len(store.inserted))
	}
}

func TestRunDedupIsScopedToOwner(t *testing.T) {
	rs := testRules(t)
	store := newMemStore()
	p := New(rs, store)

	msg := textMessage("m1", "enviodigital@bancochile.cl", "Compra con Tarjeta de Crédito", purchaseBody)
	if _, err := p.Run(context.Background(), fakeSource{messages: []mail.Message{msg}}, "owner@example.com", 10); err != nil {
		t.Fatalf("first owner: %v", err)
	}

	msg.Owner = "other@example.com"
	report, err := p.Run(context.Background(), fakeSource{messages: []mail.Message{msg}}, "other@example.com", 10)
	if err != nil {
		t.Fatalf("second owner: %v", err)
	}
	if report.RecordsNew != 1 {
		t.Fatalf("RecordsNew = %d, want 1; same id under another owner is a distinct record", report.RecordsNew)
	}
}

func TestRunSkipsRecordsThatFailExtraction(t *testing.T) {
	rs := testRules(t)
	store := newMemStore()
	p := New(rs, store)

	src := fakeSource{messages: []mail.Message{
		// Recognized shape but the body carries no amount.
		textMessage("m1", "enviodigital@bancochile.cl", "Compra con Tarjeta de Crédito", "compra sin monto"),
		textMessage("m2", "enviodigital@bancochile.cl", "Compra con Tarjeta de Crédito", purchaseBody),
	}}

	report, err := p.Run(context.Background(), src, "owner@example.com", 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RecordsParsed != 1 || report.RecordsNew != 1 {
		t.Fatalf("report = %+v, want the malformed message skipped", report)
	}
}

func TestRunFetchFailureAborts(t *testing.T) {
	rs := testRules(t)
	store := newMemStore()
	p := New(rs, store)

	_, err := p.Run(context.Background(), fakeSource{err: errors.New("boom")}, "owner@example.com", 10)
	if err == nil {
		t.Fatal("want error when the source fails")
	}
	if len(store.inserted) != 0 {
		t.Fatalf("store holds %d records after failed fetch, want 0", len(store.inserted))
	}
}

func TestRunInsertFailureAborts(t *testing.T) {
	rs := testRules(t)
	store := newMemStore()
	store.insertErr = errors.New("stream closed")
	p := New(rs, store)

	src := fakeSource{messages: []mail.Message{
		textMessage("m1", "enviodigital@bancochile.cl", "Compra con Tarjeta de Crédito", purchaseBody),
	}}
	if _, err := p.Run(context.Background(), src, "owner@example.com", 10); err == nil {
		t.Fatal("want error when the store insert fails")
	}
}
