// Package privacy masks credentials before text reaches logs or errors.
package privacy

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// botTokenRe matches Telegram bot tokens ("123456789:AA...") that may
// show up in request URLs echoed by transport errors.
var botTokenRe = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{20,}`)

// Redactor replaces known secrets and token-shaped strings with [REDACTED].
type Redactor struct {
	secrets []string
}

// New creates a redactor for the given secrets. Empty strings are ignored.
func New(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if strings.TrimSpace(s) != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Apply returns text with every secret masked. A nil Redactor still masks
// token-shaped strings.
func (r *Redactor) Apply(text string) string {
	if r != nil {
		for _, s := range r.secrets {
			text = strings.ReplaceAll(text, s, redactedPlaceholder)
		}
	}
	return botTokenRe.ReplaceAllString(text, redactedPlaceholder)
}
