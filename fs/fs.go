// Package appfs exposes the app's embedded files (DB migrations).
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
