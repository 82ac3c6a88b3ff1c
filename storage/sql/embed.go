package sql

import (
	"embed"
	"io/fs"
	"sort"
)

// SchemaFS contains all SQL migration files under schema/, applied in name order
//
//go:embed schema/*.sql
var SchemaFS embed.FS

// Migrations returns the bundled migration file names, in application order
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(SchemaFS, "schema")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}
