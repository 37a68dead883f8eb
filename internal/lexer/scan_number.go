package lexer

import (
	"strings"

	"fort2hip/internal/token"
)

// scanNumber handles 10, 10_8, 1.5, .5, 1.e3, 1.5d0, 2.0_dp.
// "1.eq.2" stops before the dotted operator.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.pos
	kind := token.IntLit
	lx.digits()

	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		if name, _, ok := dotWordAt(lx.src, lx.pos); ok {
			if _, isOp := token.LookupDotOp(name); isOp {
				return lx.numberToken(kind, start)
			}
		}
		kind = token.RealLit
		lx.pos++
		lx.digits()
	}
	if lx.pos < len(lx.src) && isExponentLetter(lx.src[lx.pos]) {
		j := lx.pos + 1
		if j < len(lx.src) && (lx.src[j] == '+' || lx.src[j] == '-') {
			j++
		}
		if j < len(lx.src) && isDigit(lx.src[j]) {
			kind = token.RealLit
			lx.pos = j
			lx.digits()
		}
	}
	lx.scanKindSuffix()
	return lx.numberToken(kind, start)
}

func (lx *Lexer) numberToken(kind token.Kind, start int) token.Token {
	return token.Token{Kind: kind, Text: strings.ToLower(lx.src[start:lx.pos]), Pos: start}
}

func (lx *Lexer) digits() {
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
}

func isExponentLetter(b byte) bool {
	switch b | 0x20 {
	case 'e', 'd', 'q':
		return true
	}
	return false
}
