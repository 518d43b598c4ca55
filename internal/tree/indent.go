package tree

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/types"
)

// Result is a reconstructed forest plus the non-fatal problems met while building it
type Result struct {
	Roots    []*types.DependencyNode
	Nodes    int
	Warnings []string
}

// DepthFunc derives the nesting depth of a rendered tree line and returns the
// text following its connectors. ok is false for lines that are not part of the tree.
type DepthFunc func(line string) (depth int, rest string, ok bool)

// LineParser turns the text after the connectors into a node
type LineParser func(rest string) (types.DependencyNode, bool)

// LeadingWidth counts the run of glyph bytes at the start of line
func LeadingWidth(line, glyphs string) int {
	width := 0
	for width < len(line) && strings.IndexByte(glyphs, line[width]) >= 0 {
		width++
	}
	return width
}

// ConnectorDepth builds a DepthFunc for tools that draw one connector cell of
// unit characters per level, e.g. "+--- " for Gradle or "+- " for Maven.
// Lines without any connector are not tree lines.
func ConnectorDepth(unit int, glyphs string) DepthFunc {
	return func(line string) (int, string, bool) {
		width := LeadingWidth(line, glyphs)
		if width == 0 || width >= len(line) {
			return 0, "", false
		}
		depth := (width + unit - 1) / unit
		return depth, line[width:], true
	}
}

// IndentBuilder rebuilds a forest from indentation or connector based tree output
type IndentBuilder struct {
	Type  types.DependencyType
	Depth DepthFunc
	Parse LineParser
	// Skip, when set, marks lines that are part of the tree but not
	// dependencies (e.g. project references). Their children attach to the
	// nearest dependency above them.
	Skip   func(rest string) bool
	Logger *slog.Logger
}

type frame struct {
	depth int
	id    int // -1 for a line that could not be parsed
}

// Build reconstructs the forest from lines. Lines that cannot be parsed are
// skipped with a warning; their children attach to the nearest parsed ancestor.
func (b *IndentBuilder) Build(lines []string) Result {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	forest := NewForest(b.Type, logger)

	var warnings []string
	var stack []frame

	for lineNo, raw := range lines {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth, rest, ok := b.Depth(line)
		if !ok {
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}

		rest = strings.TrimSpace(rest)
		if b.Skip != nil && b.Skip(rest) {
			stack = append(stack, frame{depth: depth, id: -1})
			continue
		}

		node, ok := b.Parse(rest)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line %d: cannot parse dependency %q", lineNo+1, rest))
			stack = append(stack, frame{depth: depth, id: -1})
			continue
		}

		id := forest.Add(node)
		if parent := nearestParsed(stack); parent >= 0 {
			forest.Link(parent, id)
		} else {
			forest.AddRoot(id)
		}
		stack = append(stack, frame{depth: depth, id: id})
	}

	if len(warnings) > 0 {
		logger.Warn("Skipped unparsable dependency lines", "type", b.Type, "count", len(warnings))
	}

	return Result{
		Roots:    forest.Export(),
		Nodes:    forest.Len(),
		Warnings: warnings,
	}
}

func nearestParsed(stack []frame) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id >= 0 {
			return stack[i].id
		}
	}
	return -1
}
