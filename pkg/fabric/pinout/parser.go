package pinout

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses device-info documents.
type Parser struct {
	parser *participle.Parser[Document]
}

// NewParser builds the grammar once; a Parser is reusable and safe for
// concurrent parses.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[Document](
		participle.Lexer(PinoutLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("pinout: build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse parses a document from a reader.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	doc, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("pinout: parse: %w", err)
	}
	return doc, nil
}

// ParseString parses a document from a string.
func (p *Parser) ParseString(input string) (*Document, error) {
	doc, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("pinout: parse: %w", err)
	}
	return doc, nil
}

// ParseFile parses a document from a file path.
func (p *Parser) ParseFile(filename string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("pinout: open %s: %w", filename, err)
	}
	defer file.Close()
	return p.Parse(file)
}
