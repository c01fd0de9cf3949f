package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lung.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	conn, err := Open(context.Background(), Target{Driver: DriverSQLite, Database: path})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("CREATE TABLE t (x INT)")
	assert.NoError(t, err)
}

func TestOpenSQLiteMissingDatabase(t *testing.T) {
	_, err := Open(context.Background(), Target{Driver: DriverSQLite, Database: filepath.Join(t.TempDir(), "absent.db")})
	assert.True(t, errors.Is(err, ErrUnknownDatabase), "got %v", err)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Target{Driver: "oracle"})
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestFormatDSNMySQL(t *testing.T) {
	dsn, err := Target{Driver: DriverMySQL, Host: "localhost", Database: "lung_cancer_db", User: "root", Password: "root"}.FormatDSN()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "root:root@tcp(localhost:3306)/lung_cancer_db"), dsn)

	dsn, err = Target{Driver: DriverMySQL, DSN: "u:p@tcp(db:3307)/x"}.FormatDSN()
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3307)/x", dsn)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "mysql access denied", err: &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'root'"}, want: ErrAccessDenied},
		{name: "mysql bad db", err: &mysql.MySQLError{Number: 1049, Message: "Unknown database 'lung_cancer_db'"}, want: ErrUnknownDatabase},
		{name: "wrapped mysql", err: fmt.Errorf("ping: %w", &mysql.MySQLError{Number: 1045}), want: ErrAccessDenied},
		{name: "sqlite cant open", err: sqlite3.Error{Code: sqlite3.ErrCantOpen}, want: ErrUnknownDatabase},
		{name: "sqlite readonly", err: sqlite3.Error{Code: sqlite3.ErrReadonly}, want: ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	other := errors.New("connection refused")
	assert.Equal(t, other, Classify(other))
	assert.Nil(t, Classify(nil))
}
