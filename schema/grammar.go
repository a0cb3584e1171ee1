package schema

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// nolint:gochecknoglobals
var (
	Lexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Integer", Pattern: `[0-9]+`},
		{Name: "Ident", Pattern: `[a-zA-Z0-9_/\-]+`},
		{Name: "LBracket", Pattern: `\[`},
		{Name: "RBracket", Pattern: `\]`},
		{Name: "Colon", Pattern: `:`},
		{Name: "Semicolon", Pattern: `;`},
		{Name: "Space", Pattern: ` `},
	})

	// formatDefParser parses a full format definition,
	// "<name>:<type> <field>;<type>[N] <field>;...;". Every field is
	// terminated by a semicolon; a field missing its terminator fails the
	// whole definition.
	formatDefParser = participle.MustBuild[formatDef](
		participle.Lexer(Lexer),
		participle.UseLookahead(2),
	)

	// fieldDefParser parses a single field declaration, "<type> <name>" or
	// "<type>[N] <name>". Info and parameter keys use this form.
	fieldDefParser = participle.MustBuild[fieldDef](
		participle.Lexer(Lexer),
		participle.UseLookahead(2),
	)
)

type formatDef struct {
	Name   string     `parser:"@Ident Colon"`
	Fields []fieldDef `parser:"(@@ Semicolon)*"`
}

type fieldDef struct {
	Type typeRef `parser:"@@"`
	Name string  `parser:"Space @Ident"`
}

// The space between type and name is a mandatory token: "char[8]name"
// without it is malformed.
type typeRef struct {
	Name  string    `parser:"@Ident"`
	Array *arrayRef `parser:"@@?"`
}

// arrayRef matches the complete "[N]" suffix or nothing at all. Keeping the
// bracket inside this production means an opening bracket with a missing
// length or missing closing bracket fails the field instead of being
// silently dropped.
type arrayRef struct {
	Length int `parser:"LBracket @Integer RBracket"`
}
