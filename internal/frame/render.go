package frame

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// WriteTable renders the frame as a bordered text table.
func (f *Frame) WriteTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header(toAny(f.columns)...)
	for _, row := range f.rows {
		if err := table.Append(toAny(row)...); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return table.Render()
}

// Markdown renders the frame as a GitHub-flavoured Markdown table.
func (f *Frame) Markdown() string {
	var b strings.Builder
	writeMarkdownRow(&b, f.columns)
	b.WriteString("|")
	for range f.columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range f.rows {
		writeMarkdownRow(&b, row)
	}
	return b.String()
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeMarkdownCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// markdownSpecial lists the characters with inline meaning inside a table cell.
const markdownSpecial = "\\`*_[]<>|~&!"

// escapeMarkdownCell backslash-escapes markdownSpecial so cell text is never
// read as emphasis, links or raw HTML.
func escapeMarkdownCell(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case strings.ContainsRune(markdownSpecial, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the frame as an HTML <table> by converting its Markdown form.
func (f *Frame) HTML() (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(f.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
