// Package locales embeds the translation files of the API messages.
package locales

import "embed"

// FS holds active.<lang>.toml message files
//
//go:embed *.toml
var FS embed.FS
