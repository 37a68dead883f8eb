package token

// Kind represents the category of a Fortran token.
type Kind uint8

const (
	Invalid Kind = iota
	EOF

	Ident
	IntLit
	RealLit
	StringLit
	LogicalLit // .true. / .false.

	LParen
	RParen
	LBrack
	RBrack
	Comma
	Colon
	DoubleColon
	Assign // =
	Arrow  // =>
	Percent

	Plus
	Minus
	Star
	Slash
	Power  // **
	Concat // //

	Eq  // == .eq.
	Ne  // /= .ne.
	Lt  // <  .lt.
	Le  // <= .le.
	Gt  // >  .gt.
	Ge  // >= .ge.
	Not // .not.
	And // .and.
	Or  // .or.
	Eqv
	Neqv
)

var kindNames = [...]string{
	Invalid:     "invalid",
	EOF:         "EOF",
	Ident:       "identifier",
	IntLit:      "integer literal",
	RealLit:     "real literal",
	StringLit:   "string literal",
	LogicalLit:  "logical literal",
	LParen:      "(",
	RParen:      ")",
	LBrack:      "[",
	RBrack:      "]",
	Comma:       ",",
	Colon:       ":",
	DoubleColon: "::",
	Assign:      "=",
	Arrow:       "=>",
	Percent:     "%",
	Plus:        "+",
	Minus:       "-",
	Star:        "*",
	Slash:       "/",
	Power:       "**",
	Concat:      "//",
	Eq:          "==",
	Ne:          "/=",
	Lt:          "<",
	Le:          "<=",
	Gt:          ">",
	Ge:          ">=",
	Not:         ".not.",
	And:         ".and.",
	Or:          ".or.",
	Eqv:         ".eqv.",
	Neqv:        ".neqv.",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsRelational reports ==, /=, <, <=, >, >= in either spelling.
func (k Kind) IsRelational() bool {
	return k >= Eq && k <= Ge
}

// IsLiteral reports literal token kinds.
func (k Kind) IsLiteral() bool {
	return k >= IntLit && k <= LogicalLit
}
