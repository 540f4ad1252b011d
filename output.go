package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/l7mp/dataset/pkg/config"
	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/parser"
	"github.com/l7mp/dataset/pkg/util"
)

func render(w io.Writer, res *config.Result, show, output string) error {
	switch output {
	case "dot", "mermaid":
		g, err := res.Lineage(res.Source.Name())
		if err != nil {
			return err
		}
		if output == "dot" {
			_, err = fmt.Fprintln(w, g.DOT())
		} else {
			_, err = fmt.Fprintln(w, g.Mermaid())
		}
		return err
	}

	d, err := res.Dataset(show)
	if err != nil {
		return err
	}

	switch output {
	case "table":
		return renderTable(w, d)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d.Rows())
	case "arrow":
		return parser.WriteStream(w, d, nil)
	}
	return fmt.Errorf("unknown output format %q", output)
}

func renderTable(w io.Writer, d *dataset.Dataset) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(d.ColumnNames())

	columns := d.Columns()
	for pos := 0; pos < d.Len(); pos++ {
		row := make([]string, len(columns))
		for i, c := range columns {
			v, err := c.Value(pos)
			if err != nil {
				return err
			}
			row[i] = cell(v)
		}
		table.Append(row)
	}
	table.Render()

	_, err := fmt.Fprintf(w, "(%d rows)\n", d.Len())
	return err
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case dataset.RowID:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return util.Stringify(v)
}
