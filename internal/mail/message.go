// Package mail defines the provider-neutral message envelope consumed by the
// ingestion pipeline. The Graph and Gmail fetchers normalize their wire
// formats into these types so the pipeline never sees provider payloads.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// MIME types the pipeline cares about when picking a body part.
const (
	MimeHTML = "text/html"
	MimeText = "text/plain"
)

// Message is one notification email, already fetched and decoded from the
// provider wire format. It is consumed once per pipeline run.
type Message struct {
	// ID is the provider-assigned unique id, used as the dedup key.
	ID string

	// Sender is the address the provider reports as the message sender.
	Sender string

	// Subject is the raw subject line.
	Subject string

	// ReceivedAt is when the notification arrived, in UTC.
	ReceivedAt time.Time

	// SentAt is the header-level sent timestamp, in UTC. Shapes whose body
	// carries no transaction time derive the local timestamp from it.
	SentAt time.Time

	// Owner is the mailbox owner the message belongs to.
	Owner string

	// Body is the root of the body part tree. Graph messages are a single
	// leaf; Gmail messages mirror their MIME payload tree.
	Body Part
}

// Part is one node of a message body tree. Leaves carry content, inner nodes
// only group sub-parts.
type Part struct {
	MimeType string
	Data     string
	// Base64 marks Data as base64url-encoded (Gmail bodies arrive this way).
	Base64 bool
	Parts  []Part
}

// Content returns the decoded part data.
func (p Part) Content() (string, error) {
	if !p.Base64 {
		return p.Data, nil
	}
	raw, err := base64.URLEncoding.DecodeString(p.Data)
	if err != nil {
		// Providers are inconsistent about padding.
		raw, err = base64.RawURLEncoding.DecodeString(p.Data)
	}
	if err != nil {
		return "", fmt.Errorf("mail: decode part data: %w", err)
	}
	return string(raw), nil
}

// HasContent reports whether the part is a non-empty leaf.
func (p Part) HasContent() bool {
	return p.Data != ""
}

// Source fetches the most recent messages for one mailbox owner.
// Implementations live in the provider subpackages.
type Source interface {
	FetchMessages(ctx context.Context, owner string, limit int) ([]Message, error)
}
