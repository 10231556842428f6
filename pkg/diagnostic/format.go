package diagnostic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/position"
)

// Formatter formats diagnostics into different output formats
type Formatter interface {
	// Format formats diagnostics into a specific output format
	Format(diags []*Diagnostic) ([]byte, error)
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, sources map[string][]byte, colorize bool) (Formatter, error) {
	switch name {
	case "", "text":
		return &TextFormatter{Sources: sources, Color: colorize}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "vscode":
		return &VSCodeFormatter{}, nil
	default:
		return nil, errors.Errorf("unknown diagnostic format %q", name)
	}
}

// TextFormatter prints compiler style "file:line:col: kind: message" lines,
// followed by the source line and a caret when the source is known.
type TextFormatter struct {
	Sources map[string][]byte
	Color   bool
}

func (f *TextFormatter) Format(diags []*Diagnostic) ([]byte, error) {
	var buf bytes.Buffer

	sev := color.New(color.FgRed, color.Bold)
	loc := color.New(color.Bold)
	caret := color.New(color.FgGreen, color.Bold)
	for _, c := range []*color.Color{sev, loc, caret} {
		if f.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, d := range diags {
		label := string(d.Severity)
		if label == "" {
			label = string(Error)
		}
		fmt.Fprintf(&buf, "%s: %s %s\n", loc.Sprint(d.Pos.String()), sev.Sprint(label+":"), d.Detail())

		src, ok := f.Sources[d.Pos.Filename]
		if !ok || !d.Pos.IsValid() || d.Pos.Offset > len(src) {
			continue
		}
		text := string(src)
		line := position.LineText(text, d.Pos.Offset)
		col := position.DisplayColumn(text, d.Pos.Offset)
		width := 1
		if d.Length > 1 {
			width = d.Length
		}
		fmt.Fprintf(&buf, "    %s\n", strings.ReplaceAll(line, "\t", " "))
		fmt.Fprintf(&buf, "    %s%s\n", strings.Repeat(" ", col-1), caret.Sprint(strings.Repeat("^", width)))
	}

	return buf.Bytes(), nil
}

type jsonDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Enum     string `json:"enum,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Message  string `json:"message"`
}

// JSONFormatter emits one JSON array of flat diagnostic objects.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(diags []*Diagnostic) ([]byte, error) {
	out := make([]jsonDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, jsonDiagnostic{
			File:     d.Pos.Filename,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Severity: string(d.Severity),
			Kind:     d.KindName(),
			Enum:     d.Enum,
			Variant:  d.Variant,
			Message:  d.Message,
		})
	}
	return json.Marshal(out)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

type VSCodePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type VSCodeRange struct {
	Start VSCodePosition `json:"start"`
	End   VSCodePosition `json:"end"`
}

type VSCodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Source   string      `json:"source"`
	Code     string      `json:"code,omitempty"`
	Range    VSCodeRange `json:"range"`
}

// Severity maps to the LSP DiagnosticSeverity numbers.
func (s DiagnosticSeverity) LSP() int {
	switch s {
	case Warning:
		return 2
	case Info:
		return 3
	case Hint:
		return 4
	default:
		return 1
	}
}

// ToVSCode converts a diagnostic into 0-based editor coordinates.
func ToVSCode(d *Diagnostic) VSCodeDiagnostic {
	line, col := 0, 0
	if d.Pos.IsValid() {
		line, col = d.Pos.Line-1, d.Pos.Column-1
	}
	return VSCodeDiagnostic{
		Severity: d.Severity.LSP(),
		Message:  d.Detail(),
		Source:   "encapgen",
		Code:     d.KindName(),
		Range: VSCodeRange{
			Start: VSCodePosition{Line: line, Character: col},
			End:   VSCodePosition{Line: line, Character: col + d.Length},
		},
	}
}

// Format implements Formatter
func (f *VSCodeFormatter) Format(diags []*Diagnostic) ([]byte, error) {
	if diags == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	result := make([]VSCodeDiagnostic, 0, len(diags))
	for _, d := range diags {
		result = append(result, ToVSCode(d))
	}

	return json.Marshal(result)
}
