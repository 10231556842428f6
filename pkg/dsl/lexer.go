// Package dsl parses .encap enum definitions.
package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// LexerRules defines the tokens of the definition language. Rules are
	// tried in order, so doc comments must come before plain comments.
	LexerRules = lexer.Rules{
		"Root": {
			{Name: "whitespace", Pattern: `\s+`, Action: nil},
			{Name: "DocComment", Pattern: `///[^\n]*`, Action: nil},
			{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.*?)\*/`, Action: nil},
			// one level of nested brackets covers repr(...) and derive(...)
			{Name: "Attribute", Pattern: `#\[(?:[^\[\]]|\[[^\[\]]*\])*\]`, Action: nil},
			{Name: "Int", Pattern: `0[xX][0-9a-fA-F_]+|0[oO][0-7_]+|0[bB][01_]+|[0-9][0-9_]*`, Action: nil},
			{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
			{Name: "Punct", Pattern: `<<|>>|::|[-+*/%|&^!(){}:;,=.]`, Action: nil},
		},
	}

	// DefinitionLexer is the lexer for .encap files.
	DefinitionLexer = lexer.MustStateful(LexerRules)

	identToken = DefinitionLexer.Symbols()["Ident"]

	definitionParser = participle.MustBuild[fileNode](
		participle.Lexer(DefinitionLexer),
		participle.Elide("whitespace", "Comment"),
		// "(Type) NAME" and "(expr)" share three tokens of prefix
		participle.UseLookahead(4),
	)
)

// Comments returns the positions of plain (non-doc) comments in src. The
// parser drops them, so tools that reprint a file must handle them first.
func Comments(filename, src string) ([]lexer.Position, error) {
	lex, err := DefinitionLexer.LexString(filename, src)
	if err != nil {
		return nil, err
	}
	commentType := DefinitionLexer.Symbols()["Comment"]
	var out []lexer.Position
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			return out, nil
		}
		if tok.Type == commentType {
			out = append(out, tok.Pos)
		}
	}
}
