package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
)

// Schema files ship inside the binary. An override directory exists for
// development against a scratch schema.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// RunMigrations applies every .sql file in lexical order. Statements are
// written with IF NOT EXISTS, so reapplying on startup is harmless.
func RunMigrations(db *sql.DB, dir string) error {
	fsys, root, err := migrationFS(dir)
	if err != nil {
		return err
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		stmt, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("read schema file %s: %w", name, err)
		}
		if len(stmt) == 0 {
			continue
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// migrationFS picks the schema source: an existing override directory wins,
// otherwise the embedded copy is used.
func migrationFS(dir string) (fs.FS, string, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return os.DirFS(dir), ".", nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stat migrations dir: %w", err)
		}
	}
	return schemaFS, "migrations", nil
}
