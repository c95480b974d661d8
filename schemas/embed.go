// Package schemas holds the JSON Schema files for every persisted artifact.
package schemas

import "embed"

// FS contains the *.schema.json files.
//
//go:embed *.schema.json
var FS embed.FS
