package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func noColor(t *testing.T) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })
}

func TestFormat(t *testing.T) {
	noColor(t)

	tests := []struct {
		name     string
		msg      Message
		contains []string
	}{
		{
			name:     "error with context",
			msg:      Message{Level: LevelError, Context: "startup failed", Problem: "address in use", NoColor: true},
			contains: []string{"❌", "STARTUP FAILED: address in use"},
		},
		{
			name:     "warning with suggestions",
			msg:      Message{Level: LevelWarning, Problem: "odd", Suggestions: []string{"a", "b"}, NoColor: true},
			contains: []string{"⚠️ odd", "Did you mean: a, b?"},
		},
		{
			name:     "info with hints",
			msg:      Message{Level: LevelInfo, Problem: "note", Hints: []string{"run this"}, NoColor: true},
			contains: []string{"ℹ️ note", "→ run this"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Format(tt.msg)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestWriteAndHelpers(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	Write(&buf, Message{Problem: "boom", NoColor: true})
	assert.Contains(t, buf.String(), "boom")

	assert.Equal(t, "✓ ready", Success("ready", true))
	assert.Contains(t, ConfigError(errors.New("bad yaml"), true), "CONFIGURATION ERROR: bad yaml")

	out := UnknownKind("<sparqld:/query>", "QueryEndpont", []string{"QueryEndpoint", "MemoryStore"}, true)
	assert.Contains(t, out, `<sparqld:/query> has type "QueryEndpont"`)
	assert.Contains(t, out, "Did you mean: QueryEndpoint?")
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"SQLStore", "SQLStor", 1},
		{"RedisStore", "RedisStroe", 2},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d; want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	kinds := []string{"QueryEndpoint", "UpdateEndpoint", "MemoryStore", "SQLStore", "RedisStore"}

	assert.Equal(t, []string{"MemoryStore"}, FindSimilar("memorystore", kinds, nil))
	assert.Equal(t, []string{"SQLStore"}, FindSimilar("SQLStor", kinds, nil))
	assert.Empty(t, FindSimilar("memorystore", kinds, &FuzzyOptions{CaseSensitive: true, MaxDistance: 1}))
	assert.Empty(t, FindSimilar("Completely", kinds, nil))
	assert.Len(t, FindSimilar("Store", []string{"AStore", "BStore", "CStore", "DStore"}, &FuzzyOptions{MaxSuggestions: 2}), 2)
}

func TestTable(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	table := NewTable(&buf, true, "METHOD", "PATH", "KIND")
	table.AddRow("GET", "/query", "query")
	table.AddRow("POST", "/update", "update", "ignored")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "METHOD  PATH     KIND", lines[0])
	assert.Equal(t, "──────  ───────  ──────", lines[1])
	assert.Equal(t, "GET     /query   query", lines[2])
	assert.Equal(t, "POST    /update  update", lines[3])
	assert.Equal(t, 2, table.Len())
}

func TestTableWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	assert.Empty(t, buf.String())
}

func TestHeader(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	Header(&buf, "Routes", true)
	assert.Equal(t, "Routes\n──────\n", buf.String())
}
