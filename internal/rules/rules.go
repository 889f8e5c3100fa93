// Package rules holds the static classification and categorization data the
// pipeline consumes: the sender allow-list, the recognized subject sets and
// the merchant→category table. The data is loaded once from a YAML resource
// at process start and passed explicitly into the classifier and categorizer.
package rules

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PaymentSubjects are the two card-bill-payment subject lines. Which one
// matched decides whether the payment amount is read as USD or CLP.
type PaymentSubjects struct {
	National      string `yaml:"national"`
	International string `yaml:"international"`
}

// Ruleset is the immutable rule data for one bank. Zero behavior lives here;
// the pipeline owns all decision logic.
type Ruleset struct {
	// Senders is the allow-list of notification sender addresses.
	Senders []string `yaml:"senders"`

	// Forwarders are mailbox addresses that re-send bank notifications.
	// Messages from these addresses are unwrapped before classification.
	Forwarders []string `yaml:"forwarders"`

	// PurchaseSubjects are the exact card-purchase subject lines.
	PurchaseSubjects []string `yaml:"purchase_subjects"`

	// PaymentSubjects are the exact card-bill-payment subject lines.
	PaymentSubjects PaymentSubjects `yaml:"payment_subjects"`

	// TransferExclusions mark informational transfer notices (received
	// funds) that must not be ingested as transactions.
	TransferExclusions []string `yaml:"transfer_exclusions"`

	// Categories maps a merchant descriptor (payment reason) to a category.
	Categories map[string]string `yaml:"categories"`

	// DefaultCategory is assigned on a lookup miss. Empty means the record
	// stays uncategorized.
	DefaultCategory string `yaml:"default_category"`

	// PaymentCategory overrides the reason lookup whenever the transfer
	// type is one of the two bill-payment subjects.
	PaymentCategory string `yaml:"payment_category"`

	// Timezone is the bank's local timezone, e.g. "America/Santiago".
	// Header timestamps are converted into it before the zone is dropped.
	Timezone string `yaml:"timezone"`

	loc *time.Location
}

// Load reads and validates a ruleset from a YAML file.
func Load(path string) (*Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a ruleset from raw YAML.
func Parse(raw []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("rules: unmarshal: %w", err)
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(rs.Timezone)
	if err != nil {
		return nil, fmt.Errorf("rules: timezone %q: %w", rs.Timezone, err)
	}
	rs.loc = loc
	return &rs, nil
}

func (r *Ruleset) validate() error {
	if len(r.Senders) == 0 {
		return fmt.Errorf("rules: senders allow-list is empty")
	}
	if len(r.PurchaseSubjects) == 0 {
		return fmt.Errorf("rules: purchase_subjects is empty")
	}
	if r.PaymentSubjects.National == "" || r.PaymentSubjects.International == "" {
		return fmt.Errorf("rules: both payment_subjects must be set")
	}
	if r.PaymentCategory == "" {
		return fmt.Errorf("rules: payment_category is required")
	}
	if r.Timezone == "" {
		return fmt.Errorf("rules: timezone is required")
	}
	return nil
}

// Location returns the bank's local timezone.
func (r *Ruleset) Location() *time.Location {
	return r.loc
}

// IsSender reports whether addr is on the notification sender allow-list.
func (r *Ruleset) IsSender(addr string) bool {
	return containsFold(r.Senders, addr)
}

// IsForwarder reports whether addr is a configured forwarding mailbox.
func (r *Ruleset) IsForwarder(addr string) bool {
	return containsFold(r.Forwarders, addr)
}

// IsPurchaseSubject reports whether subject is one of the exact
// card-purchase subject lines.
func (r *Ruleset) IsPurchaseSubject(subject string) bool {
	for _, s := range r.PurchaseSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

// MatchPaymentSubject matches subject against the two bill-payment subject
// lines. international is only meaningful when ok is true.
func (r *Ruleset) MatchPaymentSubject(subject string) (international, ok bool) {
	switch subject {
	case r.PaymentSubjects.National:
		return false, true
	case r.PaymentSubjects.International:
		return true, true
	}
	return false, false
}

// IsExcludedTransfer reports whether subject carries one of the exclusion
// phrases marking an informational transfer notice.
func (r *Ruleset) IsExcludedTransfer(subject string) bool {
	for _, phrase := range r.TransferExclusions {
		if strings.Contains(strings.ToLower(subject), strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// IsPaymentTransferType reports whether a transfer type equals either
// bill-payment subject line.
func (r *Ruleset) IsPaymentTransferType(transferType string) bool {
	return transferType == r.PaymentSubjects.National ||
		transferType == r.PaymentSubjects.International
}

// Category resolves a payment reason to a category. ok is false on a lookup
// miss with no configured default.
func (r *Ruleset) Category(reason string) (string, bool) {
	if c, ok := r.Categories[reason]; ok {
		return c, true
	}
	if r.DefaultCategory != "" {
		return r.DefaultCategory, true
	}
	return "", false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
