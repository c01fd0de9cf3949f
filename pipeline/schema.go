package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnType is the relational type inferred for a CSV column.
type ColumnType string

const (
	TypeInt     ColumnType = "INT"
	TypeDouble  ColumnType = "DOUBLE"
	TypeVarchar ColumnType = "VARCHAR(255)"
	TypeBoolean ColumnType = "BOOLEAN"
)

type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	NonNull    int
}

// TableSchema lists the columns in file order.
type TableSchema struct {
	Name    string
	Columns []Column
}

// missing cell spellings treated as NULL
var naValues = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"-NaN": true, "-nan": true, "NULL": true, "null": true, "None": true,
	"<NA>": true, "#N/A": true, "#NA": true,
}

func isNA(s string) bool {
	return naValues[strings.TrimSpace(s)]
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// InferSchema picks one type per column from its cells. Integral columns
// with missing cells widen to DOUBLE, columns that are entirely missing are
// DOUBLE, booleans must have no missing cells, and anything else is
// VARCHAR. A column named id (any case) becomes the primary key.
func InferSchema(name string, table *Table) TableSchema {
	schema := TableSchema{Name: name, Columns: make([]Column, len(table.Columns))}
	for j, col := range table.Columns {
		schema.Columns[j] = Column{
			Name:       col,
			Type:       inferColumn(table.Rows, j),
			PrimaryKey: strings.EqualFold(strings.TrimSpace(col), "id"),
			NonNull:    countNonNull(table.Rows, j),
		}
	}
	return schema
}

func inferColumn(rows [][]string, j int) ColumnType {
	if len(rows) == 0 {
		return TypeVarchar
	}
	allInt, allFloat, allBool := true, true, true
	missing, present := 0, 0
	for _, row := range rows {
		cell := strings.TrimSpace(row[j])
		if isNA(cell) {
			missing++
			continue
		}
		present++
		if allInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(cell); !ok {
				allBool = false
			}
		}
	}

	switch {
	case present == 0:
		return TypeDouble
	case allInt && missing == 0:
		return TypeInt
	case allFloat:
		return TypeDouble
	case allBool && missing == 0:
		return TypeBoolean
	default:
		return TypeVarchar
	}
}

func countNonNull(rows [][]string, j int) int {
	n := 0
	for _, row := range rows {
		if !isNA(row[j]) {
			n++
		}
	}
	return n
}

// Convert turns one CSV row into driver values; missing cells become nil.
func (s TableSchema) Convert(row []string) ([]interface{}, error) {
	if len(row) != len(s.Columns) {
		return nil, fmt.Errorf("row has %d fields, table has %d columns", len(row), len(s.Columns))
	}
	values := make([]interface{}, len(row))
	for j, col := range s.Columns {
		cell := strings.TrimSpace(row[j])
		if isNA(cell) {
			continue
		}
		switch col.Type {
		case TypeInt:
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			values[j] = v
		case TypeDouble:
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			values[j] = v
		case TypeBoolean:
			v, _ := parseBool(cell)
			values[j] = v
		default:
			values[j] = row[j]
		}
	}
	return values, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CreateTableSQL is idempotent: it never touches an existing table.
func (s TableSchema) CreateTableSQL() string {
	defs := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		def := quoteIdent(col.Name) + " " + string(col.Type)
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(s.Name), strings.Join(defs, ", "))
}

func (s TableSchema) InsertSQL() string {
	cols := make([]string, len(s.Columns))
	marks := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		cols[i] = quoteIdent(col.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(s.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}
