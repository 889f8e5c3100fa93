package gmail

import (
	"testing"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/tpoblete/bancomail/internal/mail"
)

func TestConvert(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "18e1",
		InternalDate: time.Date(2024, 3, 15, 21, 50, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "Banco de Chile <enviodigital@bancochile.cl>"},
				{Name: "Subject", Value: "Compra con Tarjeta de Crédito"},
				{Name: "Date", Value: "Fri, 15 Mar 2024 18:45:00 -0300"},
			},
			Parts: []*gmailapi.MessagePart{
				{MimeType: mail.MimeText, Body: &gmailapi.MessagePartBody{Data: "dGV4dG8"}},
				{MimeType: mail.MimeHTML, Body: &gmailapi.MessagePartBody{Data: "PGI-aHRtbDwvYj4"}},
			},
		},
	}

	got := convert(msg, "owner@example.com")
	if got.ID != "18e1" || got.Owner != "owner@example.com" {
		t.Errorf("identity = %s/%s", got.ID, got.Owner)
	}
	if got.Sender != "enviodigital@bancochile.cl" {
		t.Errorf("sender = %q, want the bare address", got.Sender)
	}
	if !got.SentAt.Equal(time.Date(2024, 3, 15, 21, 45, 0, 0, time.UTC)) {
		t.Errorf("sentAt = %v, want 21:45 UTC", got.SentAt)
	}
	if !got.ReceivedAt.Equal(time.Date(2024, 3, 15, 21, 50, 0, 0, time.UTC)) {
		t.Errorf("receivedAt = %v", got.ReceivedAt)
	}
	if len(got.Body.Parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(got.Body.Parts))
	}
	if !got.Body.Parts[0].Base64 {
		t.Error("gmail leaf data stays base64-encoded")
	}
}

func TestConvertWithoutDateHeader(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "18e2",
		InternalDate: time.Date(2024, 3, 15, 21, 50, 0, 0, time.UTC).UnixMilli(),
		Payload:      &gmailapi.MessagePart{MimeType: mail.MimeText},
	}

	got := convert(msg, "owner@example.com")
	if !got.SentAt.Equal(got.ReceivedAt) {
		t.Errorf("sentAt = %v, want fallback to receivedAt %v", got.SentAt, got.ReceivedAt)
	}
}
