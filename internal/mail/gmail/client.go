// Package gmail fetches messages through the Gmail API and normalizes them
// into the provider-neutral envelope.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	stdmail "net/mail"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/tpoblete/bancomail/internal/mail"
)

// Client reads mailboxes through the Gmail REST API. Each mailbox owner
// needs a previously granted OAuth token stored under the token directory.
type Client struct {
	credentialsFile string
	tokenDir        string
}

var _ mail.Source = (*Client)(nil)

// NewClient creates a Gmail client from an OAuth application credentials
// file and a directory of per-mailbox token files named <owner>.json.
func NewClient(credentialsFile, tokenDir string) *Client {
	return &Client{credentialsFile: credentialsFile, tokenDir: tokenDir}
}

// FetchMessages returns up to limit most recent messages for owner.
func (c *Client) FetchMessages(ctx context.Context, owner string, limit int) ([]mail.Message, error) {
	svc, err := c.service(ctx, owner)
	if err != nil {
		return nil, err
	}

	list, err := svc.Users.Messages.List("me").MaxResults(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: list messages for %s: %w", owner, err)
	}

	messages := make([]mail.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail: get message %s: %w", ref.Id, err)
		}
		messages = append(messages, convert(full, owner))
	}
	return messages, nil
}

func (c *Client) service(ctx context.Context, owner string) (*gmailapi.Service, error) {
	raw, err := os.ReadFile(c.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gmail: read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(raw, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gmail: parse credentials: %w", err)
	}

	token, err := c.token(owner)
	if err != nil {
		return nil, err
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return svc, nil
}

func (c *Client) token(owner string) (*oauth2.Token, error) {
	path := filepath.Join(c.tokenDir, owner+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gmail: read token for %s: %w", owner, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("gmail: parse token for %s: %w", owner, err)
	}
	return &token, nil
}

func convert(msg *gmailapi.Message, owner string) mail.Message {
	out := mail.Message{
		ID:         msg.Id,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
		Owner:      owner,
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				out.Sender = mail.ExtractAddress(h.Value)
			case "Subject":
				out.Subject = h.Value
			case "Date":
				if t, err := stdmail.ParseDate(h.Value); err == nil {
					out.SentAt = t.UTC()
				}
			}
		}
		out.Body = convertPart(msg.Payload)
	}
	if out.SentAt.IsZero() {
		out.SentAt = out.ReceivedAt
	}
	return out
}

// convertPart mirrors the Gmail MIME tree. Leaf data stays base64url-encoded
// until a body part is actually chosen.
func convertPart(p *gmailapi.MessagePart) mail.Part {
	part := mail.Part{MimeType: p.MimeType}
	if p.Body != nil && p.Body.Data != "" {
		part.Data = p.Body.Data
		part.Base64 = true
	}
	for _, sub := range p.Parts {
		part.Parts = append(part.Parts, convertPart(sub))
	}
	return part
}
