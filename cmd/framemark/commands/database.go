package commands

import (
	"database/sql"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/db"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/history"
	"github.com/teranos/framemark/logger"
)

// openDatabase opens and migrates the database at dbPath, or at the
// configured database.path when dbPath is empty.
func openDatabase(cfg *am.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}
	return database, nil
}

// openHistory returns the revision store, or nil when history is disabled.
// The returned close func is always safe to call.
func openHistory(cfg *am.Config, dbPath string) (*history.Store, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}
	database, err := openDatabase(cfg, dbPath)
	if err != nil {
		return nil, func() {}, err
	}
	return history.NewStore(database, cfg.History.MaxRevisions), func() { database.Close() }, nil
}
