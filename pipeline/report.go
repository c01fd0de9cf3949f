package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteHead prints the first n rows under their column names.
func WriteHead(w io.Writer, table *Table, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(table.Columns, "\t"))
	for i, row := range table.Rows {
		if i >= n {
			break
		}
		cells := make([]string, len(row))
		for j, cell := range row {
			if isNA(cell) {
				cells[j] = "NaN"
			} else {
				cells[j] = cell
			}
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// WriteInfo prints the row count and each column's inferred type and
// non-null count.
func WriteInfo(w io.Writer, table *Table, schema TableSchema) error {
	fmt.Fprintf(w, "%d entries, %d columns\n", len(table.Rows), len(schema.Columns))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tColumn\tNon-Null Count\tType")
	for i, col := range schema.Columns {
		key := ""
		if col.PrimaryKey {
			key = " PRIMARY KEY"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d non-null\t%s%s\n", i, col.Name, col.NonNull, col.Type, key)
	}
	return tw.Flush()
}
