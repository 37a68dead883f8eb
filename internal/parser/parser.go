// Package parser turns normalized Fortran statements into AST nodes, index
// declarations and program-unit structure.
package parser

import (
	"fmt"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/lexer"
	"fort2hip/internal/token"
)

// cursor walks the tokens of one statement.
type cursor struct {
	toks []token.Token
	pos  int
	src  string
}

func newCursor(src string) (*cursor, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return &cursor{toks: toks, src: src}, nil
}

func (c *cursor) peek() token.Token { return c.toks[c.pos] }

func (c *cursor) peekAt(n int) token.Token {
	if c.pos+n < len(c.toks) {
		return c.toks[c.pos+n]
	}
	return c.toks[len(c.toks)-1]
}

func (c *cursor) next() token.Token {
	t := c.toks[c.pos]
	if t.Kind != token.EOF {
		c.pos++
	}
	return t
}

func (c *cursor) at(k token.Kind) bool { return c.peek().Kind == k }

func (c *cursor) atWord(w string) bool { return c.peek().Is(w) }

func (c *cursor) eof() bool { return c.at(token.EOF) }

func (c *cursor) accept(k token.Kind) bool {
	if c.at(k) {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) acceptWord(w string) bool {
	if c.atWord(w) {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) expect(k token.Kind) (token.Token, error) {
	if !c.at(k) {
		return token.Token{}, c.errorf("expected %s, found %s", k, c.peek())
	}
	return c.next(), nil
}

func (c *cursor) expectIdent() (string, error) {
	t, err := c.expect(token.Ident)
	return t.Text, err
}

// rest returns the unparsed source text from the current token on.
func (c *cursor) rest() string {
	return strings.TrimSpace(c.src[c.peek().Pos:])
}

// skipGroup skips a balanced parenthesized group starting at '('.
func (c *cursor) skipGroup() error {
	if _, err := c.expect(token.LParen); err != nil {
		return err
	}
	for depth := 1; depth > 0; {
		switch c.next().Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		case token.EOF:
			return c.errorf("unbalanced parentheses")
		}
	}
	return nil
}

// groupText returns the raw text of a balanced group and skips it.
func (c *cursor) groupText() (string, error) {
	start := c.peek().Pos
	if err := c.skipGroup(); err != nil {
		return "", err
	}
	end := len(c.src)
	if !c.eof() {
		end = c.peek().Pos
	}
	text := strings.TrimSpace(c.src[start:end])
	return strings.TrimSpace(text[1 : len(text)-1]), nil
}

func (c *cursor) errorf(format string, args ...any) error {
	return diag.Errorf(diag.KindSyntax, diag.SynBadStatement, "%s in %q", fmt.Sprintf(format, args...), c.src)
}
