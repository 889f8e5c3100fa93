package pipeline

import (
	"regexp"
	"strings"

	"github.com/tpoblete/bancomail/internal/mail"
	"github.com/tpoblete/bancomail/internal/rules"
)

var forwardPrefixRE = regexp.MustCompile(`(?i)^fwd?:\s*`)

// Classifier decides which transaction shape a message represents from its
// sender address and subject line.
type Classifier struct {
	rules *rules.Ruleset
}

// NewClassifier creates a classifier over the given ruleset.
func NewClassifier(rs *rules.Ruleset) Classifier {
	return Classifier{rules: rs}
}

// Classify applies the shape rules in priority order. Sender must already be
// the true notification sender (see Unwrap for forwarded mail).
func (c Classifier) Classify(sender, subject string) Shape {
	if !c.rules.IsSender(sender) {
		return ShapeUnrecognized
	}
	if c.rules.IsPurchaseSubject(subject) {
		return ShapeCardPurchase
	}
	if strings.Contains(strings.ToLower(subject), "transferencia") &&
		!c.rules.IsExcludedTransfer(subject) {
		return ShapeTransfer
	}
	if _, ok := c.rules.MatchPaymentSubject(subject); ok {
		return ShapeCardPayment
	}
	return ShapeUnrecognized
}

// IsForwarder reports whether sender is a configured forwarding mailbox.
func (c Classifier) IsForwarder(sender string) bool {
	return c.rules.IsForwarder(sender)
}

// Unwrap recovers the true sender and subject of a message relayed through a
// forwarding mailbox: the original sender is the first address embedded in
// the forwarded body's header block, and the subject loses its leading
// forward marker. The forwarding mailbox's own address is never used for
// classification.
func (c Classifier) Unwrap(subject, content string) (string, string) {
	sender := mail.ExtractAddress(content)
	subject = forwardPrefixRE.ReplaceAllString(strings.TrimSpace(subject), "")
	return sender, subject
}
