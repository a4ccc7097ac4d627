package report

import (
	"bufio"
	"io"
	"unicode"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenLeftParen
	tokenRightParen
	tokenAtom
)

type token struct {
	typ   tokenType
	value string
	line  int
}

// lexer tokenizes the paren-delimited report format from an io.Reader. It is
// a plain streaming rune lexer: one token of lookahead, no backing buffer
// beyond bufio's.
type lexer struct {
	reader *bufio.Reader
	peeked *rune
	line   int
}

func newLexer(r io.Reader) *lexer {
	return &lexer{
		reader: bufio.NewReaderSize(r, 1<<16),
		line:   1,
	}
}

func (l *lexer) next() (token, error) {
	// Skip whitespace and ; comments.
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return token{typ: tokenEOF, line: l.line}, nil
			}
			return token{}, err
		}

		if unicode.IsSpace(ch) {
			l.read()
			continue
		}

		if ch == ';' {
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}

		break
	}

	ch, err := l.peek()
	if err != nil {
		if err == io.EOF {
			return token{typ: tokenEOF, line: l.line}, nil
		}
		return token{}, err
	}

	switch ch {
	case '(':
		l.read()
		return token{typ: tokenLeftParen, value: "(", line: l.line}, nil
	case ')':
		l.read()
		return token{typ: tokenRightParen, value: ")", line: l.line}, nil
	default:
		return l.readAtom()
	}
}

func (l *lexer) readAtom() (token, error) {
	start := l.line
	var buf []rune
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return token{}, err
		}
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == ';' {
			break
		}
		l.read()
		buf = append(buf, ch)
	}
	return token{typ: tokenAtom, value: string(buf), line: start}, nil
}

func (l *lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	l.peeked = &ch
	return ch, nil
}

func (l *lexer) read() (rune, error) {
	if l.peeked != nil {
		ch := *l.peeked
		l.peeked = nil
		if ch == '\n' {
			l.line++
		}
		return ch, nil
	}
	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	if ch == '\n' {
		l.line++
	}
	return ch, nil
}
