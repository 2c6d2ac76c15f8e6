package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
)

// printTable renders rows under headers. Rows whose first cell is in failed
// are drawn in red.
func printTable(w io.Writer, headers []string, rows [][]string, failed map[int]bool) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed[row]:
				return failStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, t.Render())
}

func pct(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}
