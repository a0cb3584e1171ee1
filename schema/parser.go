package schema

import (
	"github.com/wkalt/ulog"
)

/*
Parsing of the two text forms ULog files carry: single field declarations
("<type> <name>", used as info and parameter keys) and full format
definitions ("<name>:<field>;<field>;...;"). The participle AST does not
leave this package; callers get *Field and *MessageFormat.
*/

////////////////////////////////////////////////////////////////////////////////

// ParseField parses a single field declaration.
func ParseField(text string) (*Field, error) {
	ast, err := fieldDefParser.ParseString("", text)
	if err != nil {
		return nil, ulog.Parsef("invalid field %q: %s", text, err)
	}
	return fieldFromAST(ast), nil
}

// ParseFormat parses a format definition payload.
func ParseFormat(payload []byte) (*MessageFormat, error) {
	ast, err := formatDefParser.ParseBytes("", payload)
	if err != nil {
		return nil, ulog.Parsef("invalid message format: %s", err)
	}
	fields := make([]*Field, 0, len(ast.Fields))
	for i := range ast.Fields {
		fields = append(fields, fieldFromAST(&ast.Fields[i]))
	}
	return NewMessageFormat(ast.Name, fields), nil
}

func fieldFromAST(def *fieldDef) *Field {
	length := -1
	if def.Type.Array != nil {
		length = def.Type.Array.Length
	}
	return NewField(def.Type.Name, def.Name, length)
}
