// Package appfs holds the files embedded in the binaries.
package appfs

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql templates/email/*
var FS embed.FS

// MigrationsDir is the goose migrations directory inside FS.
const MigrationsDir = "migrations"

func Glob(pattern string) ([]string, error) {
	return fs.Glob(FS, pattern)
}
