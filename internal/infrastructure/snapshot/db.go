package snapshot

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	_ "modernc.org/sqlite"
)

// OpenDB opens the local snapshot database. The file is created on first
// use; WAL keeps the read path usable while a refresh writes.
func OpenDB(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot db path is required")
	}

	db, err := otelsqlx.Open("sqlite", buildDSN(path),
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName("clubdesk"),
	)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db %s: %w", path, err)
	}

	// SQLite allows one writer; funneling through a single connection
	// avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	return db, nil
}

func buildDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path
}
