// Package migrations holds the schema shared by the booking and business services.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
