// Package ui formats terminal output for the sparqld command line.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message describes a problem reported to the operator
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

func (l Level) palette() (*color.Color, string) {
	switch l {
	case LevelWarning:
		return color.New(color.FgYellow, color.Bold), "⚠️"
	case LevelInfo:
		return color.New(color.FgCyan, color.Bold), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), "❌"
	}
}

func paint(c *color.Color, noColor bool) *color.Color {
	if noColor {
		c.DisableColor()
	}
	return c
}

// Format renders a message, e.g.
//
//	❌ UNKNOWN KIND: QueryEndpont
//
//	   Did you mean: QueryEndpoint?
//
//	   → List routes: sparqld routes
func Format(m Message) string {
	var b strings.Builder

	header, symbol := m.Level.palette()
	header = paint(header, m.NoColor)
	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if len(m.Suggestions) > 0 {
		yellow := paint(color.New(color.FgYellow), m.NoColor)
		yellow.Fprintf(&b, "\n   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		cyan := paint(color.New(color.FgCyan), m.NoColor)
		for _, hint := range m.Hints {
			cyan.Fprintf(&b, "   → %s\n", hint)
		}
	}
	return b.String()
}

// Write writes a formatted message to w
func Write(w io.Writer, m Message) {
	fmt.Fprint(w, Format(m))
}

// Success formats a success line
func Success(message string, noColor bool) string {
	return paint(color.New(color.FgGreen, color.Bold), noColor).Sprintf("✓ %s", message)
}

// ConfigError reports a configuration that could not be loaded
func ConfigError(err error, noColor bool) string {
	return Format(Message{
		Level:   LevelError,
		Context: "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"View config: cat sparqld.yaml",
			"Override with SPARQLD_* environment variables",
		},
		NoColor: noColor,
	})
}

// UnknownKind warns about a configuration resource whose cfg:type has no
// builder, suggesting the closest known kinds.
func UnknownKind(resource, kind string, known []string, noColor bool) string {
	return Format(Message{
		Level:       LevelWarning,
		Context:     "unknown kind",
		Problem:     fmt.Sprintf("%s has type %q", resource, kind),
		Suggestions: FindSimilar(kind, known, nil),
		NoColor:     noColor,
	})
}
