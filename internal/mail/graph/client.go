// Package graph fetches messages through the Microsoft Graph API and
// normalizes them into the provider-neutral envelope.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/tpoblete/bancomail/internal/mail"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Client reads mailboxes through Microsoft Graph using the client
// credentials flow.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ mail.Source = (*Client)(nil)

// NewClient creates a Graph client. The token source refreshes itself for
// the lifetime of ctx.
func NewClient(ctx context.Context, clientID, tenantID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return &Client{httpClient: cfg.Client(ctx), baseURL: defaultBaseURL}
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	ID               string       `json:"id"`
	Subject          string       `json:"subject"`
	ReceivedDateTime time.Time    `json:"receivedDateTime"`
	SentDateTime     time.Time    `json:"sentDateTime"`
	From             graphAddress `json:"from"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

type messageList struct {
	Value []graphMessage `json:"value"`
}

// FetchMessages returns up to limit most recent messages for owner.
func (c *Client) FetchMessages(ctx context.Context, owner string, limit int) ([]mail.Message, error) {
	query := url.Values{}
	query.Set("$top", fmt.Sprint(limit))
	query.Set("$orderby", "receivedDateTime DESC")
	query.Set("$select", "id,subject,from,receivedDateTime,sentDateTime,body")

	endpoint := fmt.Sprintf("%s/users/%s/messages?%s",
		c.baseURL, url.PathEscape(owner), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: fetch messages for %s: %w", owner, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph: fetch messages for %s: status %s", owner, resp.Status)
	}

	var list messageList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("graph: decode message list: %w", err)
	}

	messages := make([]mail.Message, 0, len(list.Value))
	for _, m := range list.Value {
		// Drafts and calendar artifacts come back without a sender.
		if m.From.EmailAddress.Address == "" {
			continue
		}
		messages = append(messages, convert(m, owner))
	}
	return messages, nil
}

func convert(m graphMessage, owner string) mail.Message {
	mimeType := mail.MimeText
	if m.Body.ContentType == "html" {
		mimeType = mail.MimeHTML
	}
	return mail.Message{
		ID:         m.ID,
		Sender:     m.From.EmailAddress.Address,
		Subject:    m.Subject,
		ReceivedAt: m.ReceivedDateTime.UTC(),
		SentAt:     m.SentDateTime.UTC(),
		Owner:      owner,
		Body:       mail.Part{MimeType: mimeType, Data: m.Body.Content},
	}
}
