package mail

import "regexp"

var addressRE = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w{2,}`)

// ExtractAddress returns the first email address embedded in s, or "" when
// none is present. Header values arrive as "Display Name <addr>" and
// forwarded bodies embed the original sender in their header block; both are
// recovered the same way.
func ExtractAddress(s string) string {
	return addressRE.FindString(s)
}
