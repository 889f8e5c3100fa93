package pipeline

import "github.com/tpoblete/bancomail/internal/rules"

// Categorizer assigns spending categories to assembled records.
type Categorizer struct {
	rules *rules.Ruleset
}

// NewCategorizer creates a categorizer over the given ruleset.
func NewCategorizer(rs *rules.Ruleset) Categorizer {
	return Categorizer{rules: rs}
}

// Categorize sets r.Category in place. A transfer type matching a card bill
// payment subject takes precedence over the merchant lookup; otherwise the
// merchant descriptor is resolved through the category table. Records that
// match neither stay uncategorized.
func (c Categorizer) Categorize(r *TransactionRecord) {
	if r.TransferType != nil && c.rules.IsPaymentTransferType(*r.TransferType) {
		category := c.rules.PaymentCategory
		r.Category = &category
		return
	}
	if r.PaymentReason != nil {
		if category, ok := c.rules.Category(*r.PaymentReason); ok {
			r.Category = &category
		}
	}
}
