package ast

import (
	"strings"

	"fort2hip/internal/diag"
)

// Meta is the resolved type information of a symbol reference.
type Meta struct {
	BaseType  string
	KindParam string
	Bytes     int
	CType     string
	Rank      int
	IsArray   bool
	IsCall    bool
	Param     bool
}

// LitType is the intrinsic type of a literal.
type LitType uint8

const (
	LitInteger LitType = iota + 1
	LitReal
	LitLogical
	LitCharacter
)

func (t LitType) String() string {
	switch t {
	case LitInteger:
		return "integer"
	case LitReal:
		return "real"
	case LitLogical:
		return "logical"
	case LitCharacter:
		return "character"
	}
	return "unknown"
}

// Literal is a constant. Text is the lower-cased source spelling;
// character literals hold their unquoted value.
type Literal struct {
	Type      LitType
	Text      string
	KindParam string // from a "_kind" suffix or the exponent letter
	Bytes     int    // 0 until known
}

// Ident is a plain symbol reference. Tag names the scope that resolves it.
type Ident struct {
	Name string
	Tag  string
	Meta *Meta

	// ReductionIndex, when set, renders the identifier as a per-lane
	// element of a reduction buffer.
	ReductionIndex string
}

// Member is a derived-type member access "Base%Field".
type Member struct {
	Base  Expr // *Ident, *Eval or *Member
	Field Expr // *Ident or *Eval
	Meta  *Meta
}

// Eval is "name(args)": an array element access or a function call,
// decided by resolution.
type Eval struct {
	Name string
	Args *ArgList
	Tag  string
	Meta *Meta
}

// Unary is a prefix operator: "-", "+" or ".not.".
type Unary struct {
	Op string
	X  Expr
}

// OpChain is a run of binary operators of equal precedence:
// Operands[0] Ops[0] Operands[1] Ops[1] ... It folds left-associatively.
type OpChain struct {
	Ops      []string
	Operands []Expr
}

// Arg is one actual argument, optionally keyword-named.
type Arg struct {
	Keyword string
	Value   Expr
}

// ArgList is a parenthesized argument list.
type ArgList struct {
	Args []Arg
}

// Slice is "lo:hi:stride"; absent parts are nil.
type Slice struct {
	Lo, Hi, Stride Expr
}

func (*Literal) Kind() NodeKind { return KindLiteral }
func (*Ident) Kind() NodeKind   { return KindIdent }
func (*Member) Kind() NodeKind  { return KindMember }
func (*Eval) Kind() NodeKind    { return KindEval }
func (*Unary) Kind() NodeKind   { return KindUnary }
func (*OpChain) Kind() NodeKind { return KindOpChain }
func (*ArgList) Kind() NodeKind { return KindArgList }
func (*Slice) Kind() NodeKind   { return KindSlice }

func (*Literal) node() {}
func (*Ident) node()   {}
func (*Member) node()  {}
func (*Eval) node()    {}
func (*Unary) node()   {}
func (*OpChain) node() {}
func (*ArgList) node() {}
func (*Slice) node()   {}

func (*Literal) expr() {}
func (*Ident) expr()   {}
func (*Member) expr()  {}
func (*Eval) expr()    {}
func (*Unary) expr()   {}
func (*OpChain) expr() {}
func (*ArgList) expr() {}
func (*Slice) expr()   {}

func unresolved(name string) error {
	return diag.Errorf(diag.KindResolution, diag.ResUnresolved, "%q has not been resolved", name)
}

// Type returns the resolved base type.
func (id *Ident) Type() (string, error) {
	if id.Meta == nil {
		return "", unresolved(id.Name)
	}
	return id.Meta.BaseType, nil
}

// Rank returns the resolved rank.
func (id *Ident) Rank() (int, error) {
	if id.Meta == nil {
		return 0, unresolved(id.Name)
	}
	return id.Meta.Rank, nil
}

func (e *Eval) Type() (string, error) {
	if e.Meta == nil {
		return "", unresolved(e.Name)
	}
	return e.Meta.BaseType, nil
}

func (e *Eval) Rank() (int, error) {
	if e.Meta == nil {
		return 0, unresolved(e.Name)
	}
	return e.Meta.Rank, nil
}

// IsArrayAccess reports a resolved array element access.
func (e *Eval) IsArrayAccess() bool { return e.Meta != nil && e.Meta.IsArray }

func (m *Member) Type() (string, error) {
	if m.Meta == nil {
		return "", unresolved(m.Path())
	}
	return m.Meta.BaseType, nil
}

func (m *Member) Rank() (int, error) {
	if m.Meta == nil {
		return 0, unresolved(m.Path())
	}
	return m.Meta.Rank, nil
}

// Root returns the leftmost symbol name of the access path.
func (m *Member) Root() string {
	return symbolName(m.Base)
}

// Path returns the access path without subscripts, e.g. "a%b%c".
func (m *Member) Path() string {
	return memberPath(m.Base) + "%" + memberPath(m.Field)
}

func memberPath(e Expr) string {
	switch x := e.(type) {
	case *Member:
		return x.Path()
	default:
		return symbolName(e)
	}
}

func symbolName(e Expr) string {
	switch x := e.(type) {
	case *Ident:
		return x.Name
	case *Eval:
		return x.Name
	case *Member:
		return x.Root()
	}
	return ""
}

// NewIdent creates a lower-cased identifier.
func NewIdent(name string) *Ident {
	return &Ident{Name: strings.ToLower(name)}
}

// Chain builds an OpChain, or returns the operand itself for a single one.
func Chain(op string, operands ...Expr) Expr {
	if len(operands) == 1 {
		return operands[0]
	}
	ops := make([]string, len(operands)-1)
	for i := range ops {
		ops[i] = op
	}
	return &OpChain{Ops: ops, Operands: operands}
}

// Args wraps positional arguments.
func Args(values ...Expr) *ArgList {
	l := &ArgList{Args: make([]Arg, len(values))}
	for i, v := range values {
		l.Args[i] = Arg{Value: v}
	}
	return l
}

// Values returns the argument values.
func (l *ArgList) Values() []Expr {
	if l == nil {
		return nil
	}
	out := make([]Expr, len(l.Args))
	for i, a := range l.Args {
		out[i] = a.Value
	}
	return out
}
