// Package suggest proposes categories for merchant descriptors missing from
// the category table, using a Gemini model.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// Suggester asks a model to map merchant descriptors to known categories.
type Suggester struct {
	model string
}

// New creates a suggester for the given model name.
func New(model string) *Suggester {
	return &Suggester{model: model}
}

// SuggestCategories returns a proposed category for each descriptor. The
// model may only pick from the provided category list; descriptors it cannot
// place map to an empty string. Proposals are suggestions for the ruleset
// maintainer, never written to storage.
func (s *Suggester) SuggestCategories(ctx context.Context, reasons, categories []string) (map[string]string, error) {
	if len(reasons) == 0 {
		return map[string]string{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(reasons, categories)}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("suggest: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("suggest: empty response from model")
	}

	var proposals map[string]string
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &proposals); err != nil {
		return nil, fmt.Errorf("suggest: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	// Drop anything the model invented outside the allowed list.
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	for reason, category := range proposals {
		if category != "" && !allowed[category] {
			proposals[reason] = ""
		}
	}
	return proposals, nil
}

func buildPrompt(reasons, categories []string) string {
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("You classify merchant descriptors from Chilean bank card purchases.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Assign each descriptor below to one of the allowed categories.\n")
	b.WriteString("- Output STRICT JSON only: a single object mapping descriptor to category.\n")
	b.WriteString("- Use the empty string for descriptors you cannot place.\n")
	b.WriteString("- Do NOT invent categories and do NOT wrap the response in code fences.\n\n")

	b.WriteString("Allowed categories:\n")
	for _, c := range sorted {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString("\nDescriptors:\n")
	for _, r := range reasons {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}

// cleanModelJSON strips Markdown fences the model sometimes adds despite
// instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
