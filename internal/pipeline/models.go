package pipeline

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Currency of a transaction amount. Derived from the presence of the USD
// marker in the money pattern, never inferred otherwise.
type Currency string

const (
	CurrencyCLP Currency = "CLP"
	CurrencyUSD Currency = "USD"
)

// TransactionType determines which optional fields of a record are set.
type TransactionType string

const (
	TypeCardPurchase TransactionType = "CARD_PURCHASE"
	TypeCardPayment  TransactionType = "CARD_PAYMENT"
	TypeTransfer     TransactionType = "TRANSFER"
)

// Shape is the structural category of a notification, decided from sender
// and subject before any field extraction happens.
type Shape int

const (
	ShapeUnrecognized Shape = iota
	ShapeCardPurchase
	ShapeTransfer
	ShapeCardPayment
)

func (s Shape) String() string {
	switch s {
	case ShapeCardPurchase:
		return "card_purchase"
	case ShapeTransfer:
		return "transfer"
	case ShapeCardPayment:
		return "card_payment"
	}
	return "unrecognized"
}

// Money is an extracted amount with its derived currency.
type Money struct {
	Currency Currency
	Amount   decimal.Decimal
}

// TransactionRecord is the canonical output of the pipeline: one financial
// transaction extracted from one notification mail. Records are immutable
// after assembly except for the categorizer's Category assignment, and are
// never updated after persistence.
type TransactionRecord struct {
	// ID is the provider-assigned message id, the dedup key.
	ID string

	// MailTimestampUTC is when the notification was received.
	MailTimestampUTC time.Time

	// TransactionTimestampLocal is when the financial event occurred, as a
	// naive wall-clock time in the bank's timezone.
	TransactionTimestampLocal civil.DateTime

	Sender   string
	Currency Currency
	Amount   decimal.Decimal

	TransactionType TransactionType

	// PaymentReason is the merchant descriptor. Card purchases only.
	PaymentReason *string

	// TransferType is the originating notification subject. Transfers and
	// card payments only.
	TransferType *string

	// TransferSource and TransferDestination are set for transfers when
	// extractable.
	TransferSource      *string
	TransferDestination *string

	// Content is the whitespace-collapsed plain-text body.
	Content string

	// UserEmail is the mailbox owner; dedup is scoped to it.
	UserEmail string

	// Category is assigned by the categorizer. Nil when unmapped.
	Category *string
}

// validate enforces the structural invariants a record must satisfy before
// it may be emitted: exactly one of PaymentReason/TransferType set, and a
// non-negative amount.
func (r *TransactionRecord) validate() error {
	hasReason := r.PaymentReason != nil
	hasTransferType := r.TransferType != nil
	if hasReason == hasTransferType {
		return fmt.Errorf("record %s: want exactly one of payment reason and transfer type, got reason=%v transfer=%v",
			r.ID, hasReason, hasTransferType)
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("record %s: negative amount %s", r.ID, r.Amount)
	}
	return nil
}

// Per-shape extraction results. Each shape carries only the fields it can
// produce, so a record with both or neither of the optional reason fields
// cannot be assembled.

type purchaseFields struct {
	money      Money
	occurredAt civil.DateTime
	reason     string
}

type transferFields struct {
	money       Money
	source      *string
	destination *string
}

type paymentFields struct {
	money         Money
	international bool
}
