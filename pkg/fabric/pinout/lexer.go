package pinout

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// PinoutLexer defines the lexical structure of device-info documents. The
// format is a small attribute-style language: keyword-framed sections of
// semicolon-terminated declarations, with -- comments.
var PinoutLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	{Name: "KwDeviceinfo", Pattern: `(?i)\bDEVICEINFO\b`},
	{Name: "KwSection", Pattern: `(?i)\bSECTION\b`},
	{Name: "KwPinout", Pattern: `(?i)\bPINOUT\b`},
	{Name: "KwNotes", Pattern: `(?i)\bNOTES\b`},
	{Name: "KwIs", Pattern: `(?i)\bIS\b`},
	{Name: "KwEnd", Pattern: `(?i)\bEND\b`},
	{Name: "KwPin", Pattern: `(?i)\bPIN\b`},
	{Name: "KwSite", Pattern: `(?i)\bSITE\b`},
	{Name: "KwBel", Pattern: `(?i)\bBEL\b`},
	{Name: "KwNote", Pattern: `(?i)\bNOTE\b`},

	{Name: "Colon", Pattern: `:`},
	{Name: "Semicolon", Pattern: `;`},

	{Name: "String", Pattern: `"[^"]*"`},

	// Package pin names may start with a digit (ball "1A3"), so idents are
	// broader than usual.
	{Name: "Ident", Pattern: `[A-Za-z0-9_][A-Za-z0-9_.]*`},
})
