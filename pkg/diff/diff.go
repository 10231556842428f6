// Package diff renders line diffs of sources and of pretty-printed values.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Text returns a line diff turning before into after, headed by the file
// name, or "" when they are equal.
func Text(name, before, after string) string {
	if before == after {
		return ""
	}
	var b strings.Builder
	b.WriteString("--- " + name + " (original)\n")
	b.WriteString("+++ " + name + " (formatted)\n")
	b.WriteString(diff.Diff(before, after))
	b.WriteString("\n")
	return b.String()
}

// Values pretty-prints the exported fields of want and got and returns the
// edits turning got into want, or "" when they print the same.
func Values[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	gotText, wantText := printer.Sprint(got), printer.Sprint(want)
	if gotText == wantText {
		return ""
	}
	abc := diff.Diff(gotText, wantText)
	str := "\n\n"
	str += "to convert ACTUAL ⏩️ EXPECTED:\n\n"
	str += "add:    ➕\n"
	str += "remove: ➖\n"
	str += "\n"
	str += strings.ReplaceAll(strings.ReplaceAll(abc, "\n-", "\n➖"), "\n+", "\n➕")

	return str
}
