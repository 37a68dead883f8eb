package token

import "strings"

// Token is one lexeme of a statement. Identifier and operator text is
// lower-cased; string literals keep their spelling.
type Token struct {
	Kind Kind
	Text string
	Pos  int // byte offset within the statement
}

// Is reports whether t is the identifier word (case-insensitive).
func (t Token) Is(word string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, word)
}

func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Kind.String()
}

// dotOps maps dotted operator names to kinds.
var dotOps = map[string]Kind{
	"eq":    Eq,
	"ne":    Ne,
	"lt":    Lt,
	"le":    Le,
	"gt":    Gt,
	"ge":    Ge,
	"not":   Not,
	"and":   And,
	"or":    Or,
	"eqv":   Eqv,
	"neqv":  Neqv,
	"true":  LogicalLit,
	"false": LogicalLit,
}

// LookupDotOp returns the kind of ".name." if name is a dotted operator or
// logical constant.
func LookupDotOp(name string) (Kind, bool) {
	k, ok := dotOps[strings.ToLower(name)]
	return k, ok
}
