package db

import (
	"strings"

	"github.com/teranos/framemark/errors"
)

// ErrDatabaseClosed marks work attempted after the database was closed, as
// when a save races shutdown.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or the driver's
// own "database is closed" error, which arrives unwrapped.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDatabaseClosed) || strings.Contains(err.Error(), "database is closed")
}
