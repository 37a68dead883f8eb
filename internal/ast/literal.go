package ast

import (
	"strconv"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/types"
)

// NewLiteral builds a literal from its lexeme. Kind suffixes ("_8",
// "_dp") and the d/q exponent letters set KindParam.
func NewLiteral(t LitType, text string) *Literal {
	l := &Literal{Type: t, Text: strings.ToLower(text)}
	if t == LitCharacter {
		l.Text = text
		return l
	}
	if i := strings.LastIndexByte(l.Text, '_'); i > 0 {
		l.KindParam = l.Text[i+1:]
		return l
	}
	if t == LitReal {
		switch {
		case strings.ContainsRune(l.Text, 'd'):
			l.KindParam = "8"
		case strings.ContainsRune(l.Text, 'q'):
			l.KindParam = "16"
		}
	}
	return l
}

// value strips the kind suffix.
func (l *Literal) value() string {
	if i := strings.LastIndexByte(l.Text, '_'); i > 0 && l.Type != LitCharacter {
		return l.Text[:i]
	}
	return l.Text
}

// Width returns the byte width of a numeric literal. Literals with a named
// kind need resolution first.
func (l *Literal) Width() (int, error) {
	if l.Bytes > 0 {
		return l.Bytes, nil
	}
	base := types.Integer
	if l.Type == LitReal {
		base = types.Real
	}
	if l.KindParam != "" {
		if _, ok := types.ParseKind(l.KindParam); !ok {
			return 0, unresolved(l.Text)
		}
	}
	return types.Bytes(base, l.KindParam)
}

var (
	realSuffix    = map[int]string{4: "f", 8: "", 16: "L"}
	integerSuffix = map[int]string{4: "", 8: "L", 16: "LL"}
)

// literalHIP renders a literal with the C suffix of its byte width.
func literalHIP(l *Literal) (string, error) {
	switch l.Type {
	case LitLogical:
		return strings.Trim(l.value(), "."), nil
	case LitCharacter:
		return strconv.Quote(l.Text), nil
	}
	width, err := l.Width()
	if err != nil {
		return "", err
	}
	suffixes := integerSuffix
	text := l.value()
	if l.Type == LitReal {
		suffixes = realSuffix
		text = strings.NewReplacer("d", "e", "q", "e").Replace(text)
	}
	suffix, ok := suffixes[width]
	if !ok {
		return "", diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedSize,
			"%s literal %q has unsupported width of %d bytes", l.Type, l.Text, width)
	}
	return text + suffix, nil
}
