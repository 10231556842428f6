package dsl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

type fileNode struct {
	Pos     lexer.Position
	Package *string     `parser:"(\"package\" @Ident \";\"?)?"`
	Enums   []*enumNode `parser:"@@*"`
}

type metaNode struct {
	Pos  lexer.Position
	Doc  *string `parser:"  @DocComment"`
	Attr *string `parser:"| @Attribute"`
}

type visNode struct {
	Pos        lexer.Position
	Pub        bool            `parser:"@\"pub\""`
	Restricted *visRestriction `parser:"(\"(\" @@ \")\")?"`
}

type visRestriction struct {
	Pos   lexer.Position
	Scope *string  `parser:"  @(\"crate\" | \"super\" | \"self\")"`
	In    []string `parser:"| \"in\" @Ident (\"::\" @Ident)*"`
}

type reprNode struct {
	Pos  lexer.Position
	Vis  *visNode `parser:"@@?"`
	Type string   `parser:"@Ident"`
}

type enumNode struct {
	Pos      lexer.Position
	Tokens   []lexer.Token
	Meta     []*metaNode    `parser:"@@*"`
	Vis      *visNode       `parser:"@@?"`
	Name     string         `parser:"\"enum\" @Ident"`
	Repr     *reprNode      `parser:"(\":\" @@)?"`
	Variants []*variantNode `parser:"\"{\" (@@ (\",\" @@)* \",\"?)? \"}\""`
}

type variantNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token
	Meta   []*metaNode `parser:"@@*"`
	Name   string      `parser:"@Ident"`
	Value  *exprNode   `parser:"(\"=\" @@)?"`
}

// exprNode is a flat operand/operator chain; precedence is applied when
// lowering.
type exprNode struct {
	Pos  lexer.Position
	Head *unaryNode `parser:"@@"`
	Tail []*opNode  `parser:"@@*"`
}

type opNode struct {
	Pos lexer.Position
	Op  string     `parser:"@(\"<<\" | \">>\" | \"|\" | \"^\" | \"&\" | \"+\" | \"-\" | \"*\" | \"/\" | \"%\")"`
	X   *unaryNode `parser:"@@"`
}

type unaryNode struct {
	Pos     lexer.Position
	Ops     []string     `parser:"@(\"-\" | \"!\")*"`
	Primary *primaryNode `parser:"@@"`
}

type primaryNode struct {
	Pos   lexer.Position
	Cast  *castNode `parser:"  @@"`
	Int   *string   `parser:"| @Int"`
	Ref   *string   `parser:"| @Ident"`
	Paren *exprNode `parser:"| \"(\" @@ \")\""`
}

type castNode struct {
	Pos   lexer.Position
	Type  string   `parser:"\"(\" @Ident \")\""`
	Const []string `parser:"@Ident ((\".\" | \"::\") @Ident)*"`
}
