// Package data embeds the default catalog files so the API can start without
// a DATA_DIR.
package data

import "embed"

// FS holds coffee.json and categories.json.
//
//go:embed coffee.json categories.json
var FS embed.FS
