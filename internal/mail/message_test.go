package mail

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestPartContent(t *testing.T) {
	t.Run("plain data", func(t *testing.T) {
		p := Part{Data: "hola"}
		got, err := p.Content()
		if err != nil || got != "hola" {
			t.Fatalf("Content() = %q, %v", got, err)
		}
	})

	t.Run("padded base64url", func(t *testing.T) {
		p := Part{Data: base64.URLEncoding.EncodeToString([]byte("compra $990")), Base64: true}
		got, err := p.Content()
		if err != nil || got != "compra $990" {
			t.Fatalf("Content() = %q, %v", got, err)
		}
	})

	t.Run("unpadded base64url", func(t *testing.T) {
		p := Part{Data: base64.RawURLEncoding.EncodeToString([]byte("compra $990")), Base64: true}
		got, err := p.Content()
		if err != nil || got != "compra $990" {
			t.Fatalf("Content() = %q, %v", got, err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		p := Part{Data: "%%%", Base64: true}
		if _, err := p.Content(); err == nil {
			t.Fatal("want error for undecodable data")
		}
	})
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Banco de Chile <enviodigital@bancochile.cl>", "enviodigital@bancochile.cl"},
		{"enviodigital@bancochile.cl", "enviodigital@bancochile.cl"},
		{"De: Banco <enviodigital@bancochile.cl> Para: yo", "enviodigital@bancochile.cl"},
		{"sin direccion", ""},
	}
	for _, tt := range tests {
		if got := ExtractAddress(tt.in); got != tt.want {
			t.Errorf("ExtractAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasContent(t *testing.T) {
	if (Part{}).HasContent() {
		t.Error("empty part reports content")
	}
	if !(Part{Data: strings.Repeat("x", 1)}).HasContent() {
		t.Error("non-empty part reports no content")
	}
}
