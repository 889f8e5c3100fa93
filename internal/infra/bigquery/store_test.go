package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tpoblete/bancomail/internal/pipeline"
)

func TestRowFromRecord(t *testing.T) {
	reason := "MERPAGO*UBER"
	category := "Transporte"
	rec := &pipeline.TransactionRecord{
		ID:               "m1",
		MailTimestampUTC: time.Date(2024, 3, 15, 21, 50, 0, 0, time.UTC),
		TransactionTimestampLocal: civil.DateTime{
			Date: civil.Date{Year: 2024, Month: time.March, Day: 15},
			Time: civil.Time{Hour: 18, Minute: 45},
		},
		Sender:          "enviodigital@bancochile.cl",
		Currency:        pipeline.CurrencyCLP,
		Amount:          decimal.RequireFromString("12345.67"),
		TransactionType: pipeline.TypeCardPurchase,
		PaymentReason:   &reason,
		Content:         "compra por $12.345,67",
		UserEmail:       "owner@example.com",
		Category:        &category,
	}

	row := rowFromRecord(rec)

	if row.ID != "m1" || row.UserEmail != "owner@example.com" {
		t.Errorf("identity = %s/%s", row.ID, row.UserEmail)
	}
	if row.Currency != "CLP" || row.TransactionType != "CARD_PURCHASE" {
		t.Errorf("currency/type = %s/%s", row.Currency, row.TransactionType)
	}
	if row.Amount.FloatString(2) != "12345.67" {
		t.Errorf("amount = %s, want 12345.67", row.Amount.FloatString(2))
	}
	if !row.PaymentReason.Valid || row.PaymentReason.StringVal != reason {
		t.Errorf("payment_reason = %+v", row.PaymentReason)
	}
	if row.TransferType.Valid {
		t.Errorf("transferation_type = %+v, want null on a purchase", row.TransferType)
	}
	if !row.Category.Valid || row.Category.StringVal != category {
		t.Errorf("category = %+v", row.Category)
	}
	if row.TransactionTimestampLocal != rec.TransactionTimestampLocal {
		t.Errorf("local timestamp = %v", row.TransactionTimestampLocal)
	}
}

func TestNullString(t *testing.T) {
	if got := nullString(nil); got.Valid {
		t.Errorf("nullString(nil) = %+v, want invalid", got)
	}
	v := "x"
	if got := nullString(&v); !got.Valid || got.StringVal != "x" {
		t.Errorf("nullString(&x) = %+v", got)
	}
}
