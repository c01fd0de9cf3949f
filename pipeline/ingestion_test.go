package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lungsurv/db"
)

func TestIngesterRun(t *testing.T) {
	target := sqliteTarget(t)
	src := writeFile(t, t.TempDir(), "part-00000.csv",
		[]byte("id,age,gender_Male,survived\n1,64,True,1\n2,50,False,0\n3,71,True,1\n"))

	var out bytes.Buffer
	ing := NewIngester(nil, &out, zaptest.NewLogger(t))
	job := Job{Source: src, Table: "preprocessed_lung_data", Target: target}

	stats, err := ing.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 4, stats.Columns)

	text := out.String()
	assert.Contains(t, text, "Loading data from "+src)
	assert.Contains(t, text, "CSV Data Head:")
	assert.Contains(t, text, "CSV Data Info:")
	assert.Contains(t, text, "`id` INT PRIMARY KEY")
	assert.Contains(t, text, "Inserting 3 rows into `preprocessed_lung_data`")
	assert.Contains(t, text, "connection closed.")

	count, err := NewTableStore(openSQLite(t, target)).Count(context.Background(), "preprocessed_lung_data")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngesterReadsBeforeConnecting(t *testing.T) {
	opened := false
	open := func(ctx context.Context, target db.Target) (*sql.DB, error) {
		opened = true
		return nil, errors.New("unreachable")
	}
	ing := NewIngester(open, nil, nil)
	job := Job{Source: filepath.Join(t.TempDir(), "nope.csv"), Table: "t"}

	_, err := ing.Run(context.Background(), job)
	assert.True(t, errors.Is(err, ErrSourceNotFound))
	assert.False(t, opened)
}

func TestIngesterMissingDatabase(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.csv", []byte("id\n1\n"))
	job := Job{
		Source: src,
		Table:  "t",
		Target: db.Target{Driver: db.DriverSQLite, Database: filepath.Join(t.TempDir(), "absent.db")},
	}

	_, err := NewIngester(nil, nil, nil).Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrUnknownDatabase), "got %v", err)
}

func TestDescribe(t *testing.T) {
	job := Job{Source: "data/part-00000.csv", Target: db.Target{Database: "lung_cancer_db"}}

	tests := []struct {
		err  error
		want string
	}{
		{db.Classify(&mysql.MySQLError{Number: 1045, Message: "denied"}),
			"Error: Access denied. Check your database username and password."},
		{db.Classify(&mysql.MySQLError{Number: 1049, Message: "unknown"}),
			"Error: Database 'lung_cancer_db' does not exist. Please create it first."},
		{fmt.Errorf("%w: x", ErrSourceNotFound),
			"Error: The CSV file was not found at data/part-00000.csv. Please check the path and filename carefully."},
		{ErrSourceEmpty,
			"Error: The CSV file at data/part-00000.csv is empty or has no columns."},
		{fmt.Errorf("%w: row 3: duplicate", ErrInsert),
			"Database Error: insert failed: row 3: duplicate"},
		{errors.New("disk on fire"),
			"An unexpected error occurred: disk on fire"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(job, tt.err))
	}
	assert.Empty(t, Describe(job, nil))
}
