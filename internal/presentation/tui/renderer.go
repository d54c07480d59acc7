package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/kvsession/internal/demo"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects a light or dark background; "notty" renders plain text.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// ReportMarkdown describes a demo report as a markdown document.
func ReportMarkdown(r *demo.Report) string {
	var b strings.Builder
	b.WriteString("# Demo report\n\n")
	b.WriteString("| Key | Value |\n|---|---|\n")
	row := func(key, value string) {
		fmt.Fprintf(&b, "| `%s` | %s |\n", key, value)
	}
	row("framework", r.Framework)
	row("key", r.Key)
	row("tech-stack", formatHash(r.TechStack))
	row("event", formatHash(r.Event))
	for i, friends := range r.Friends {
		row(fmt.Sprintf("friends (%d)", i+1), strings.Join(friends, ", "))
	}
	cast := append([]string(nil), r.Cast...)
	sort.Strings(cast)
	row("cast", strings.Join(cast, ", "))
	row("non-existent", fmt.Sprintf("found: %t", r.NonExistent))
	row("hello", fmt.Sprintf("present for %d polls", r.HelloPolls))
	row("counter", strings.Trim(fmt.Sprint(r.Counter), "[]"))
	row("hash key", formatHash(r.HashKey))

	if r.NestedError != "" {
		fmt.Fprintf(&b, "\n> Nested hash rejected: %s\n", r.NestedError)
	}
	fmt.Fprintf(&b, "\n%d keys removed at cleanup.\n", r.Removed)
	return b.String()
}

func formatHash(fields map[string]string) string {
	if len(fields) == 0 {
		return "_empty_"
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + fields[name]
	}
	return strings.Join(pairs, ", ")
}
