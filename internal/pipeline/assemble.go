package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tpoblete/bancomail/internal/mail"
	"github.com/tpoblete/bancomail/internal/rules"
)

// ErrUnrecognized marks a message that is not a known notification shape.
// Unrecognized mail is routine, not a failure; callers skip it silently.
var ErrUnrecognized = errors.New("pipeline: unrecognized message")

// Parser turns one message into one transaction record, or reports that the
// message is not a recognizable notification.
type Parser struct {
	classifier Classifier
	extractor  Extractor
	rules      *rules.Ruleset
}

// NewParser creates a parser over the given ruleset.
func NewParser(rs *rules.Ruleset) Parser {
	return Parser{
		classifier: NewClassifier(rs),
		extractor:  NewExtractor(rs),
		rules:      rs,
	}
}

// Parse classifies and extracts msg. It returns ErrUnrecognized for mail
// that is not a known notification; any other error means a recognized
// notification failed field extraction.
func (p Parser) Parse(msg mail.Message) (*TransactionRecord, error) {
	sender := mail.ExtractAddress(msg.Sender)
	subject := strings.TrimSpace(msg.Subject)

	var content string
	var haveContent bool

	// Forwarded notifications carry the true sender inside the body, so the
	// body must be read before classification. Everything else is gated on
	// the sender allow-list first and the body is only touched afterwards.
	if p.classifier.IsForwarder(sender) {
		c, err := ExtractBody(msg)
		if err != nil {
			return nil, fmt.Errorf("pipeline: message %s: %w", msg.ID, err)
		}
		content, haveContent = c, true
		sender, subject = p.classifier.Unwrap(subject, content)
	}

	shape := p.classifier.Classify(sender, subject)
	if shape == ShapeUnrecognized {
		return nil, ErrUnrecognized
	}

	if !haveContent {
		c, err := ExtractBody(msg)
		if err != nil {
			return nil, fmt.Errorf("pipeline: message %s: %w", msg.ID, err)
		}
		content = c
	}

	rec := &TransactionRecord{
		ID:               msg.ID,
		MailTimestampUTC: msg.ReceivedAt.UTC(),
		Sender:           sender,
		Content:          content,
		UserEmail:        msg.Owner,
	}

	switch shape {
	case ShapeCardPurchase:
		f, err := p.extractor.purchase(content, subject)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		rec.TransactionType = TypeCardPurchase
		rec.Currency = f.money.Currency
		rec.Amount = f.money.Amount
		rec.TransactionTimestampLocal = f.occurredAt
		rec.PaymentReason = &f.reason

	case ShapeTransfer:
		f, err := p.extractor.transfer(content)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		rec.TransactionType = TypeTransfer
		rec.Currency = f.money.Currency
		rec.Amount = f.money.Amount
		rec.TransactionTimestampLocal = p.extractor.localDateTime(msg.SentAt)
		transferType := subject
		rec.TransferType = &transferType
		rec.TransferSource = f.source
		rec.TransferDestination = f.destination

	case ShapeCardPayment:
		international, _ := p.rules.MatchPaymentSubject(subject)
		f, err := p.extractor.payment(content, international)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		rec.TransactionType = TypeCardPayment
		rec.Currency = f.money.Currency
		rec.Amount = f.money.Amount
		rec.TransactionTimestampLocal = p.extractor.localDateTime(msg.SentAt)
		transferType := subject
		rec.TransferType = &transferType
	}

	if err := rec.validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return rec, nil
}
