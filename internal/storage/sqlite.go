package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite.sql
var sqliteMigrations embed.FS

type SQLiteStorage struct {
	sqlStore
	path string
}

// NewSQLiteStorage opens (creating if needed) the database file at path.
func NewSQLiteStorage(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{
		sqlStore: sqlStore{db: db, dialect: sqliteDialect{}, logger: logger},
		path:     path,
	}

	migrationSQL, err := sqliteMigrations.ReadFile("migrations/sqlite.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(migrationSQL)); err != nil {
		db.Close()
		return nil, fmt.Errorf("error executing migrations: %w", err)
	}

	logger.Info("Opened SQLite database", zap.String("path", path))
	return storage, nil
}

// sqliteDSN builds a file URI for path. The path is escaped so that '?' and
// '#' in a file name are not read as the start of the query.
func sqliteDSN(path string) string {
	query := url.Values{}
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", "busy_timeout(5000)")
	query.Add("_pragma", "journal_mode(WAL)")
	dsn := url.URL{Scheme: "file", Opaque: (&url.URL{Path: path}).EscapedPath(), RawQuery: query.Encode()}
	return dsn.String()
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) rebind(query string) string { return query }

func (sqliteDialect) likeOperator() string { return "LIKE" }

func (sqliteDialect) isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
