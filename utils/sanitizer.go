package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes every tag from user-supplied text
var StrictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips HTML from a free-text profile field and trims it.
// Entities produced by the policy are decoded again, since the value is
// stored as plain text rather than rendered.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(StrictPolicy.Sanitize(s)))
}
