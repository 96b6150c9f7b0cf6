package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jcolombo/paymo/internal/model"
	"github.com/jcolombo/paymo/internal/resource"
	"github.com/jcolombo/paymo/internal/schema"
	"github.com/jcolombo/paymo/internal/ui"
)

const maxCellWidth = 50

// summaryFields are shown in list tables when the entity has them.
var summaryFields = []string{"name", "title", "status", "description", "date", "price"}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printEntity(e *resource.Entity) error {
	if jsonOutput {
		return printJSON(e.Flatten())
	}

	values := e.Fields()
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := [][2]string{{"id", formatCell(values["id"])}}
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, formatCell(values[k])})
	}
	ui.KeyValues(os.Stdout, pairs)

	for _, name := range e.IncludedNames() {
		fmt.Println()
		fmt.Println(ui.RenderHeader(name))
		if sub, ok := e.IncludedCollection(name); ok {
			printCollectionTable(sub, nil)
			continue
		}
		if sub, ok := e.IncludedEntity(name); ok {
			fmt.Printf("  %s\n", sub)
		}
	}
	return nil
}

func printCollection(c *resource.Collection, columns []string) error {
	if jsonOutput {
		return printJSON(c.Flatten())
	}
	printCollectionTable(c, columns)
	fmt.Println(ui.RenderMuted(fmt.Sprintf("\n%d %s", c.Len(), plural(c.Len(), c.Type()))))
	return nil
}

func printCollectionTable(c *resource.Collection, columns []string) {
	items := c.Items()
	if len(columns) == 0 && len(items) > 0 {
		columns = defaultColumns(items[0].Descriptor())
	}
	if len(columns) == 0 {
		columns = []string{"id"}
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col)
	}
	tbl := ui.NewTable(os.Stdout, headers...)
	for _, e := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			v, _ := e.Get(col)
			row[i] = truncate(formatCell(v), maxCellWidth)
		}
		tbl.AddRow(row...)
	}
	tbl.Render()
}

func defaultColumns(d *schema.Descriptor) []string {
	cols := []string{}
	if !d.NoIdentity {
		cols = append(cols, "id")
	}
	for _, f := range summaryFields {
		if d.HasField(f) && len(cols) < 4 {
			cols = append(cols, f)
		}
	}
	if len(cols) <= 1 {
		for _, f := range d.FieldNames() {
			if f != "id" && len(cols) < 4 {
				cols = append(cols, f)
			}
		}
	}
	return cols
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatCell(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		data, _ := json.Marshal(t)
		return string(data)
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

// formatError renders engine errors with their kind highlighted.
func formatError(err error) string {
	var me *model.Error
	if errors.As(err, &me) {
		return ui.RenderError("Error ("+strings.ReplaceAll(me.Kind.String(), "_", " ")+"):") + " " + err.Error()
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ui.RenderError("Validation failed:") + " " + err.Error()
	}
	return ui.RenderError("Error:") + " " + err.Error()
}

func exitCode(err error) int {
	switch model.KindOf(err) {
	case model.KindTransportFailure:
		return 3
	case "":
		return 1
	}
	return 2
}
