package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/persistorai/auditlog/client"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}
		fmt.Println(strings.Join(parts, "  "))
	}

	printRow(headers)
	seps := make([]string, len(headers))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

func formatQuiet(id string) {
	fmt.Println(id)
}

func output(v any, quietVal string) {
	switch flagFmt {
	case "quiet":
		formatQuiet(quietVal)
	default:
		// Table needs caller-specific columns; anything else is JSON.
		formatJSON(v)
	}
}

// printPage renders one page of query results in the selected format.
func printPage(page *client.Page) {
	switch flagFmt {
	case "table":
		headers := []string{"ID", "CREATED_AT", "APP", "ACTION", "EMP", "PROCESS_ID"}
		rows := make([][]string, 0, len(page.Data))
		for _, e := range page.Data {
			rows = append(rows, []string{
				fmt.Sprintf("%d", e.ID),
				e.CreatedAt.UTC().Format(time.RFC3339),
				e.SourceApp,
				e.Action,
				deref(e.EmpID),
				e.ProcessID,
			})
		}
		formatTable(headers, rows)
		fmt.Printf("\n%d of %d (offset %d)\n", len(page.Data), page.TotalCount, page.Offset)
	case "quiet":
		for _, e := range page.Data {
			formatQuiet(e.ProcessID)
		}
	default:
		formatJSON(page)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
