// Package tabledata embeds the default itrans table.
package tabledata

import (
	_ "embed"
	"log/slog"

	"github.com/jusunglee/itrans/internal/table"
)

// DefaultName is the catalog name of the embedded table.
const DefaultName = "default"

//go:embed default.tsv
var Default string

// Load parses the embedded table.
func Load(log *slog.Logger) (*table.Table, error) {
	return table.Parse(Default, log)
}
