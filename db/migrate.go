package db

import (
	"database/sql"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/framemark/errors"
)

//go:embed sqlite/migrations/*.sql
var migrationFS embed.FS

const migrationDir = "sqlite/migrations"

// migration is one embedded .sql file. The version is the file name's prefix
// before the first underscore.
type migration struct {
	version string
	file    string
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFS, migrationDir)
	if err != nil {
		return nil, errors.Wrap(err, "read embedded migrations")
	}
	var out []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, errors.Newf("migration %s has no version prefix", name)
		}
		out = append(out, migration{version: version, file: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// appliedVersions reads schema_migrations. A database that has never been
// migrated has no such table and reports nothing applied.
func appliedVersions(db *sql.DB) (map[string]bool, error) {
	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&n)
	if err != nil {
		return nil, errors.Wrap(err, "look up schema_migrations")
	}
	applied := make(map[string]bool)
	if n == 0 {
		return applied, nil
	}

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read schema_migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		applied[v] = true
	}
	return applied, errors.Wrap(rows.Err(), "iterate schema_migrations")
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, in version order, one transaction each. The 000
// migration creates schema_migrations and is recorded like the rest.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	all, err := loadMigrations()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range all {
		if applied[m.version] {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
		count++
		if logger != nil {
			logger.Infow("Migration applied", "migration", m.file, "version", m.version)
		}
	}

	if logger != nil {
		logger.Debugw("Schema up to date", "applied", count, "known", len(all))
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	body, err := migrationFS.ReadFile(path.Join(migrationDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin %s", m.file)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.file)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.file)
}
