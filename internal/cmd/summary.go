package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/petrarca/dependency-resolver/internal/types"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorYellow = lipgloss.Color("220")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan).Padding(0, 1)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
)

// ecosystemSummary is one row of the summary table
type ecosystemSummary struct {
	Type         string
	Projects     int
	Dependencies int
	Warnings     int
}

// summarize counts projects, unique dependencies and warnings per dependency type
func summarize(results []*types.ResolutionResult) []ecosystemSummary {
	byType := make(map[string]*ecosystemSummary)
	forests := make(map[string][]*types.DependencyNode)

	for _, res := range results {
		key := string(res.DependencyType)
		row, ok := byType[key]
		if !ok {
			row = &ecosystemSummary{Type: key}
			byType[key] = row
		}
		row.Projects++
		row.Warnings += len(res.Warnings)
		for _, name := range res.ProjectNames() {
			forests[key] = append(forests[key], res.Projects[name]...)
		}
	}

	rows := make([]ecosystemSummary, 0, len(byType))
	for key, row := range byType {
		row.Dependencies = types.CountUnique(forests[key])
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Type < rows[j].Type })
	return rows
}

// isTerminal reports whether f is attached to a terminal
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printSummary renders the per-ecosystem summary table to w
func printSummary(w io.Writer, results []*types.ResolutionResult) {
	rows := summarize(results)
	if len(rows) == 0 {
		fmt.Fprintln(w, styleTitle.Render("No projects found"))
		return
	}

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Type, strconv.Itoa(r.Projects), strconv.Itoa(r.Dependencies), strconv.Itoa(r.Warnings)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Ecosystem", "Projects", "Dependencies", "Warnings").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader.Padding(0, 1)
			case col == 3 && rows[row].Warnings > 0:
				return styleWarning
			case col > 0:
				return styleNumber
			}
			return styleCell
		})

	fmt.Fprintln(w, styleTitle.Render("Dependency resolution summary"))
	fmt.Fprintln(w, t.Render())
}
