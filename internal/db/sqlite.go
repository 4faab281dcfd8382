package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/medguideai/medguide/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSqlite opens a sqlite database in WAL mode, creating the parent
// directory for file-backed paths. ":memory:" is accepted as-is.
func OpenSqlite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "sqlite path is not configured")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create sqlite directory for %s", path)
		}
	}

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", path)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", path)
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}

	return nil
}
