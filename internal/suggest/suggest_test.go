package suggest

import (
	"strings"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain json passes through",
			in:   `{"UBER": "Transporte"}`,
			want: `{"UBER": "Transporte"}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"UBER\": \"Transporte\"}\n```",
			want: `{"UBER": "Transporte"}`,
		},
		{
			name: "bare fence",
			in:   "```\n{}\n```",
			want: `{}`,
		},
		{
			name: "surrounding whitespace",
			in:   "  \n{}\n  ",
			want: `{}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(
		[]string{"FERRETERIA LOCAL", "CAFE CENTRAL"},
		[]string{"Transporte", "Comida - Restaurante"},
	)

	for _, want := range []string{"FERRETERIA LOCAL", "CAFE CENTRAL", "Transporte", "Comida - Restaurante"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
	if !strings.Contains(prompt, "STRICT JSON") {
		t.Error("prompt does not demand strict JSON output")
	}
}
