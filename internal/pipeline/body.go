package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/tpoblete/bancomail/internal/mail"
)

// ErrNoBody is returned when a message carries no readable body part.
var ErrNoBody = errors.New("pipeline: no readable body part")

var whitespaceRE = regexp.MustCompile(`\s+`)

// ExtractBody turns a message body tree into collapsed plain text. An HTML
// part anywhere in the tree is preferred over a plain-text part; the chosen
// leaf is decoded, HTML is reduced to the text of its <body> element, and
// whitespace runs are collapsed so downstream patterns survive line-wrap
// variance.
func ExtractBody(msg mail.Message) (string, error) {
	part, ok := findPart(msg.Body, mail.MimeHTML)
	if !ok {
		part, ok = findPart(msg.Body, mail.MimeText)
	}
	if !ok {
		return "", ErrNoBody
	}

	raw, err := part.Content()
	if err != nil {
		return "", err
	}

	text := raw
	if part.MimeType == mail.MimeHTML {
		text, err = htmlToText(raw)
		if err != nil {
			return "", fmt.Errorf("pipeline: parse html body: %w", err)
		}
	}

	return collapseWhitespace(text), nil
}

// findPart walks the part tree depth-first and returns the first non-empty
// leaf with the wanted MIME type.
func findPart(p mail.Part, mimeType string) (mail.Part, bool) {
	if p.MimeType == mimeType && p.HasContent() {
		return p, true
	}
	for _, sub := range p.Parts {
		if found, ok := findPart(sub, mimeType); ok {
			return found, true
		}
	}
	return mail.Part{}, false
}

// htmlToText strips markup and returns the text of the document's <body>
// element. When no <body> element exists the whole document's text is used.
func htmlToText(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", err
	}

	root := doc
	if body := findElement(doc, "body"); body != nil {
		root = body
	}

	var b strings.Builder
	collectText(root, &b)
	return b.String(), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		// Script and style text is not message content.
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
