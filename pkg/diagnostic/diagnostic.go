package diagnostic

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/position"
)

// Error kinds. Every generation failure unwraps to exactly one of these.
var (
	ErrSyntax             = errors.Base("syntax error")
	ErrDuplicateVariant   = errors.Base("duplicate variant")
	ErrEmptyEnum          = errors.Base("empty enum")
	ErrForwardReference   = errors.Base("forward reference")
	ErrValueRange         = errors.Base("value out of range")
	ErrUnresolvedConstant = errors.Base("unresolved constant")
	ErrVisibilityConflict = errors.Base("visibility conflict")
)

// Kinds lists the error kinds in the order they are documented.
var Kinds = []error{
	ErrSyntax,
	ErrDuplicateVariant,
	ErrEmptyEnum,
	ErrForwardReference,
	ErrValueRange,
	ErrUnresolvedConstant,
	ErrVisibilityConflict,
}

// DiagnosticSeverity represents the severity level of a diagnostic
type DiagnosticSeverity string

const (
	Error   DiagnosticSeverity = "error"
	Warning DiagnosticSeverity = "warning"
	Info    DiagnosticSeverity = "info"
	Hint    DiagnosticSeverity = "hint"
)

// Diagnostic is a single problem found while generating. It is an error
// that unwraps to its Kind, so callers test it with errors.Is.
type Diagnostic struct {
	Kind     error
	Severity DiagnosticSeverity
	Pos      position.Position
	// Length is the byte length of the offending text, 0 when unknown.
	Length  int
	Enum    string
	Variant string
	Message string
}

func New(kind error, pos position.Position, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Severity: Error,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WithSubject records the enum and variant the diagnostic is about.
func (d *Diagnostic) WithSubject(enum, variant string) *Diagnostic {
	d.Enum = enum
	d.Variant = variant
	return d
}

func (d *Diagnostic) WithLength(n int) *Diagnostic {
	d.Length = n
	return d
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Detail())
}

// Detail is the message prefixed with the kind, without the location.
func (d *Diagnostic) Detail() string {
	if d.Kind == nil {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Kind.Error(), d.Message)
}

func (d *Diagnostic) Unwrap() error {
	return d.Kind
}

// KindName returns the short kind label used in machine readable output.
func (d *Diagnostic) KindName() string {
	if d.Kind == nil {
		return "error"
	}
	return d.Kind.Error()
}

// Collect flattens err into diagnostics, sorted by position. Errors that
// are not diagnostics (I/O failures and the like) become diagnostics
// without a kind.
func Collect(err error) []*Diagnostic {
	var out []*Diagnostic
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				walk(e)
			}
			return
		}
		var d *Diagnostic
		if errors.As(err, &d) {
			out = append(out, d)
			return
		}
		out = append(out, &Diagnostic{Severity: Error, Message: err.Error()})
	}
	walk(err)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
	return out
}

// Diagnostics groups diagnostics by severity.
type Diagnostics struct {
	Errors   []*Diagnostic
	Warnings []*Diagnostic
	Hints    []*Diagnostic
}

func Group(diags []*Diagnostic) *Diagnostics {
	out := &Diagnostics{
		Errors:   make([]*Diagnostic, 0),
		Warnings: make([]*Diagnostic, 0),
		Hints:    make([]*Diagnostic, 0),
	}
	for _, d := range diags {
		switch d.Severity {
		case Warning:
			out.Warnings = append(out.Warnings, d)
		case Hint, Info:
			out.Hints = append(out.Hints, d)
		default:
			out.Errors = append(out.Errors, d)
		}
	}
	return out
}

func (d *Diagnostics) All() []*Diagnostic {
	all := make([]*Diagnostic, 0, len(d.Errors)+len(d.Warnings)+len(d.Hints))
	all = append(all, d.Errors...)
	all = append(all, d.Warnings...)
	all = append(all, d.Hints...)
	return all
}
