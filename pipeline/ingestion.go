package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"lungsurv/db"
)

// Job describes one CSV-to-table load.
type Job struct {
	Source      string
	Encoding    string
	Table       string
	Target      db.Target
	PreviewRows int
}

// Stats summarises a finished load.
type Stats struct {
	Source   string        `json:"source"`
	Table    string        `json:"table"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Duration time.Duration `json:"duration"`
}

// Opener connects to the target database.
type Opener func(ctx context.Context, t db.Target) (*sql.DB, error)

// Ingester reads a CSV, ensures its table exists and bulk inserts it,
// narrating progress to out.
type Ingester struct {
	open   Opener
	out    io.Writer
	logger *zap.Logger
}

func NewIngester(open Opener, out io.Writer, logger *zap.Logger) *Ingester {
	if open == nil {
		open = db.Open
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{open: open, out: out, logger: logger}
}

// Run performs the load. The CSV is read before any connection is made, and
// the connection is always closed before Run returns.
func (in *Ingester) Run(ctx context.Context, job Job) (stats Stats, err error) {
	start := time.Now()
	stats = Stats{Source: job.Source, Table: job.Table}
	log := in.logger.With(zap.String("source", job.Source), zap.String("table", job.Table))

	fmt.Fprintf(in.out, "Loading data from %s...\n", job.Source)
	table, err := ReadCSV(job.Source, job.Encoding)
	if err != nil {
		return stats, err
	}
	schema := InferSchema(job.Table, table)
	stats.Columns = len(schema.Columns)

	preview := job.PreviewRows
	if preview <= 0 {
		preview = 5
	}
	fmt.Fprintln(in.out, "\nCSV Data Head:")
	if err := WriteHead(in.out, table, preview); err != nil {
		return stats, err
	}
	fmt.Fprintln(in.out, "\nCSV Data Info:")
	if err := WriteInfo(in.out, table, schema); err != nil {
		return stats, err
	}

	fmt.Fprintf(in.out, "\nConnecting to %s database...\n", job.Target.Driver)
	conn, err := in.open(ctx, job.Target)
	if err != nil {
		return stats, err
	}
	defer func() {
		multierr.AppendInto(&err, conn.Close())
		fmt.Fprintf(in.out, "%s connection closed.\n", job.Target.Driver)
	}()
	fmt.Fprintf(in.out, "Successfully connected to %s.\n", job.Target.Driver)

	store := NewTableStore(conn)
	fmt.Fprintf(in.out, "Creating table with SQL: %s\n", schema.CreateTableSQL())
	if err := store.CreateTable(ctx, schema); err != nil {
		return stats, err
	}
	fmt.Fprintf(in.out, "Table `%s` ensured to exist.\n", job.Table)

	fmt.Fprintf(in.out, "\nInserting %d rows into `%s`...\n", len(table.Rows), job.Table)
	n, err := store.InsertAll(ctx, schema, table.Rows)
	if err != nil {
		log.Error("bulk insert failed", zap.Error(err))
		return stats, err
	}
	stats.Rows = n
	stats.Duration = time.Since(start)
	fmt.Fprintf(in.out, "Data successfully dumped into table `%s`.\n", job.Table)

	log.Info("load complete",
		zap.Int("rows", n),
		zap.Int("columns", stats.Columns),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// Describe renders a load failure as the one-line message shown to the
// operator.
func Describe(job Job, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, db.ErrAccessDenied):
		return "Error: Access denied. Check your database username and password."
	case errors.Is(err, db.ErrUnknownDatabase):
		name := job.Target.Database
		if name == "" {
			name = job.Target.DSN
		}
		return fmt.Sprintf("Error: Database '%s' does not exist. Please create it first.", name)
	case errors.Is(err, ErrSourceNotFound):
		return fmt.Sprintf("Error: The CSV file was not found at %s. Please check the path and filename carefully.", job.Source)
	case errors.Is(err, ErrSourceEmpty):
		return fmt.Sprintf("Error: The CSV file at %s is empty or has no columns.", job.Source)
	case errors.Is(err, ErrInsert), errors.Is(err, ErrCreateTable):
		return fmt.Sprintf("Database Error: %v", err)
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", err)
	}
}
