// Package db opens the relational target of the bulk loader and classifies
// driver errors.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

var (
	ErrAccessDenied    = errors.New("access denied")
	ErrUnknownDatabase = errors.New("database does not exist")
	ErrUnsupported     = errors.New("unsupported driver")
)

// Target describes where the loader writes.
type Target struct {
	Driver   string
	DSN      string // used verbatim when set
	Host     string
	Port     int
	Database string // schema name for mysql, file path for sqlite3
	User     string
	Password string
}

// FormatDSN builds the connection string for t.
func (t Target) FormatDSN() (string, error) {
	if t.DSN != "" {
		return t.DSN, nil
	}
	switch t.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = t.User
		cfg.Passwd = t.Password
		cfg.Net = "tcp"
		port := t.Port
		if port == 0 {
			port = 3306
		}
		cfg.Addr = fmt.Sprintf("%s:%d", t.Host, port)
		cfg.DBName = t.Database
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case DriverSQLite:
		// mode=rw refuses to create a missing file, matching mysql's
		// behaviour for an absent schema
		return "file:" + (&url.URL{Path: t.Database}).EscapedPath() + "?mode=rw&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupported, t.Driver)
	}
}

// Open connects and pings t. The pool is limited to a single connection.
func Open(ctx context.Context, t Target) (*sql.DB, error) {
	if t.Driver == DriverSQLite && t.DSN == "" {
		if _, err := os.Stat(t.Database); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDatabase, t.Database)
		}
	}
	dsn, err := t.FormatDSN()
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(t.Driver, dsn)
	if err != nil {
		return nil, Classify(err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, Classify(err)
	}
	return conn, nil
}

// Classify maps driver errors onto ErrAccessDenied and ErrUnknownDatabase,
// keeping the original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045: // ER_DBACCESS_DENIED_ERROR, ER_ACCESS_DENIED_ERROR
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		case 1049: // ER_BAD_DB_ERROR
			return fmt.Errorf("%w: %w", ErrUnknownDatabase, err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrAuth, sqlite3.ErrPerm, sqlite3.ErrReadonly:
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %w", ErrUnknownDatabase, err)
		}
	}
	return err
}
