package pg

import (
	"embed"
	"io/fs"
)

// Migrations holds the goose SQL migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsFS returns the migrations directory as the root of an fs.FS.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(Migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
