package cli

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"finrouter/internal/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36")).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
)

// render writes v in the selected format; rows builds the table form
func (c *CLI) render(v any, rows func() ([]string, [][]string)) error {
	switch c.format {
	case formatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		headers, body := rows()
		_, err := fmt.Fprintln(c.out, renderTable(headers, body))
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", c.format)
	}
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// recordTable lays records out one per row with a column per exported field
func recordTable(records []models.Record) ([]string, [][]string) {
	if len(records) == 0 {
		return []string{"RECORDS"}, [][]string{{"none"}}
	}

	t := reflect.TypeOf(records[0])
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		rows := make([][]string, len(records))
		for i, rec := range records {
			rows[i] = []string{fmt.Sprint(rec)}
		}
		return []string{"RECORD"}, rows
	}

	var (
		headers []string
		fields  []int
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		headers = append(headers, strings.ToUpper(name))
		fields = append(fields, i)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		v := reflect.Indirect(reflect.ValueOf(rec))
		row := make([]string, len(fields))
		for j, i := range fields {
			row[j] = formatValue(v.Field(i))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func formatValue(v reflect.Value) string {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	switch x := v.Interface().(type) {
	case time.Time:
		if x.Equal(x.Truncate(24 * time.Hour)) {
			return x.Format(models.DateLayout)
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(math.Round(x*1e6)/1e6, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
