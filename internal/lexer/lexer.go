package lexer

import (
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/token"
)

// Lexer splits one normalized Fortran statement into tokens.
// Continuations, comments and ';' have already been handled by the line map.
type Lexer struct {
	src string
	pos int
}

func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize returns all tokens of src followed by EOF.
func Tokenize(src string) ([]token.Token, error) {
	lx := New(src)
	var out []token.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() (token.Token, error) {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		return token.Token{Kind: token.EOF, Pos: lx.pos}, nil
	}
	ch := lx.src[lx.pos]
	switch {
	case ch == '!':
		// хвостовой комментарий, если line map его не убрал
		lx.pos = len(lx.src)
		return token.Token{Kind: token.EOF, Pos: lx.pos}, nil
	case isLetter(ch):
		return lx.scanIdent(), nil
	case isDigit(ch):
		return lx.scanNumber(), nil
	case ch == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]):
		return lx.scanNumber(), nil
	case ch == '.':
		if tok, ok := lx.scanDotOp(); ok {
			return tok, nil
		}
	case ch == '\'' || ch == '"':
		return lx.scanString(ch)
	}
	return lx.scanPunct()
}

func (lx *Lexer) skipSpace() {
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		lx.pos++
	}
}

func (lx *Lexer) scanIdent() token.Token {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentByte(lx.src[lx.pos]) {
		lx.pos++
	}
	return token.Token{Kind: token.Ident, Text: strings.ToLower(lx.src[start:lx.pos]), Pos: start}
}

// scanDotOp recognizes ".and.", ".true._1" and friends.
func (lx *Lexer) scanDotOp() (token.Token, bool) {
	start := lx.pos
	name, end, ok := dotWordAt(lx.src, start)
	if !ok {
		return token.Token{}, false
	}
	kind, known := token.LookupDotOp(name)
	if !known {
		return token.Token{}, false
	}
	lx.pos = end
	if kind == token.LogicalLit {
		lx.scanKindSuffix()
	}
	return token.Token{Kind: kind, Text: strings.ToLower(lx.src[start:lx.pos]), Pos: start}, true
}

// dotWordAt matches ".letters." at i and returns the letters and the
// offset after the closing dot.
func dotWordAt(src string, i int) (string, int, bool) {
	if i >= len(src) || src[i] != '.' {
		return "", 0, false
	}
	j := i + 1
	for j < len(src) && isLetter(src[j]) {
		j++
	}
	if j == i+1 || j >= len(src) || src[j] != '.' {
		return "", 0, false
	}
	return src[i+1 : j], j + 1, true
}

func (lx *Lexer) scanKindSuffix() {
	if lx.pos+1 < len(lx.src) && lx.src[lx.pos] == '_' && isIdentByte(lx.src[lx.pos+1]) {
		lx.pos++
		for lx.pos < len(lx.src) && isIdentByte(lx.src[lx.pos]) {
			lx.pos++
		}
	}
}

func (lx *Lexer) scanString(quote byte) (token.Token, error) {
	start := lx.pos
	lx.pos++
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		if ch == quote {
			if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == quote {
				sb.WriteByte(quote)
				lx.pos += 2
				continue
			}
			lx.pos++
			return token.Token{Kind: token.StringLit, Text: sb.String(), Pos: start}, nil
		}
		sb.WriteByte(ch)
		lx.pos++
	}
	return token.Token{}, diag.Errorf(diag.KindSyntax, diag.SynUnterminatedText,
		"unterminated string starting at column %d", start+1)
}

func (lx *Lexer) scanPunct() (token.Token, error) {
	start := lx.pos
	two := ""
	if lx.pos+1 < len(lx.src) {
		two = lx.src[lx.pos : lx.pos+2]
	}
	kind := token.Invalid
	switch two {
	case "::":
		kind = token.DoubleColon
	case "=>":
		kind = token.Arrow
	case "**":
		kind = token.Power
	case "//":
		kind = token.Concat
	case "==":
		kind = token.Eq
	case "/=":
		kind = token.Ne
	case "<=":
		kind = token.Le
	case ">=":
		kind = token.Ge
	}
	if kind != token.Invalid {
		lx.pos += 2
		return token.Token{Kind: kind, Text: two, Pos: start}, nil
	}
	switch lx.src[lx.pos] {
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '[':
		kind = token.LBrack
	case ']':
		kind = token.RBrack
	case ',':
		kind = token.Comma
	case ':':
		kind = token.Colon
	case '=':
		kind = token.Assign
	case '%':
		kind = token.Percent
	case '+':
		kind = token.Plus
	case '-':
		kind = token.Minus
	case '*':
		kind = token.Star
	case '/':
		kind = token.Slash
	case '<':
		kind = token.Lt
	case '>':
		kind = token.Gt
	default:
		return token.Token{}, diag.Errorf(diag.KindSyntax, diag.SynBadStatement,
			"unexpected character %q at column %d", lx.src[lx.pos], start+1)
	}
	lx.pos++
	return token.Token{Kind: kind, Text: lx.src[start:lx.pos], Pos: start}, nil
}

func isLetter(b byte) bool { return (b|0x20) >= 'a' && (b|0x20) <= 'z' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentByte(b byte) bool { return isLetter(b) || isDigit(b) || b == '_' || b == '$' }
