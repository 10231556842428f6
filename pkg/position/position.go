package position

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/apparentlymart/go-textseg/v13/textseg"
)

type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Position is a location inside a .encap source file. Line and Column are
// 1-based, Offset is a 0-based byte offset.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func FromLexer(pos lexer.Position) Position {
	return Position{
		Filename: pos.Filename,
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
	}
}

func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	name := p.Filename
	if name == "" {
		name = "<input>"
	}
	if !p.IsValid() {
		return name
	}
	return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Column)
}

// RawPosition represents a position in the source text
type RawPosition struct {
	// Offset is the byte offset in the source text
	Offset int
	// Text is the actual text at this position
	Text string
}

func NewBasicPosition(text string, offset int) RawPosition {
	return RawPosition{Text: text, Offset: offset}
}

// ID returns a unique identifier for this position based on offset and text
func (p RawPosition) ID() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

func (p RawPosition) Length() int {
	return len(p.Text)
}

// Contains reports whether the byte offset falls inside the text span.
func (p RawPosition) Contains(offset int) bool {
	return offset >= p.Offset && offset <= p.Offset+p.Length()
}

// GetLineAndColumn calculates the line and column number for a given position in the text
// Returns zero-based line and column numbers
func (p RawPosition) GetLineAndColumn(text string) (line, col int) {
	if p.Offset <= 0 {
		return 0, 0
	}

	end := p.Offset
	if end > len(text) {
		end = len(text)
	}

	lastNewline := -1
	for i := 0; i < end; i++ {
		if text[i] == '\n' {
			line++
			lastNewline = i
		}
	}

	return line, end - lastNewline - 1
}

func (p RawPosition) GetEndPosition() RawPosition {
	return RawPosition{
		Text:   "",
		Offset: p.Offset + p.Length(),
	}
}

// GetRange calculates the zero-based line/column range for a RawPosition
func (p RawPosition) GetRange(fileText string) Range {
	startLine, startCol := p.GetLineAndColumn(fileText)
	endLine, endCol := p.GetEndPosition().GetLineAndColumn(fileText)
	return Range{
		Start: Place{Line: startLine, Character: startCol},
		End:   Place{Line: endLine, Character: endCol},
	}
}

func (p RawPosition) String() string {
	return p.ID()
}

// OffsetOf converts a zero-based line and UTF-16 character (as sent by
// editors) into a byte offset. Out of range values clamp to the text.
func OffsetOf(text string, line, character int) int {
	offset := 0
	for i := 0; i < line; i++ {
		idx := strings.IndexByte(text[offset:], '\n')
		if idx < 0 {
			return len(text)
		}
		offset += idx + 1
	}

	units := 0
	for i, r := range text[offset:] {
		if r == '\n' || units >= character {
			return offset + i
		}
		units += len(utf16.Encode([]rune{r}))
	}
	return len(text)
}

// UTF16Column converts a byte column on a single line into UTF-16 code units.
func UTF16Column(line string, byteCol int) int {
	if byteCol > len(line) {
		byteCol = len(line)
	}
	n := 0
	for _, r := range line[:byteCol] {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// DisplayColumn returns the 1-based column of offset counted in grapheme
// clusters, which is what a reader sees in a terminal.
func DisplayColumn(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	prefix := src[start:offset]
	if !utf8.ValidString(prefix) {
		return len(prefix) + 1
	}
	n, err := textseg.TokenCount([]byte(prefix), textseg.ScanGraphemeClusters)
	if err != nil {
		return len(prefix) + 1
	}
	return n + 1
}

// LineText returns the full line (without newline) that contains offset.
func LineText(src string, offset int) string {
	if offset > len(src) {
		offset = len(src)
	}
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		return src[start:]
	}
	return src[start : offset+end]
}
