// Package ast models Fortran statements and expressions inside kernels.
// Nodes render themselves back to normalized Fortran and down to HIP C++.
package ast

// NodeKind enumerates every node variant.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota

	// statements
	KindAssignment
	KindIfBlock
	KindSelectCase
	KindDoLoop
	KindDoWhile
	KindDoForever
	KindGoTo
	KindLabel
	KindExit
	KindCycle
	KindReturn
	KindContinue
	KindCall

	// expressions
	KindLiteral
	KindIdent
	KindMember
	KindEval
	KindUnary
	KindOpChain
	KindArgList
	KindSlice
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindAssignment: "assignment",
	KindIfBlock:    "if",
	KindSelectCase: "select case",
	KindDoLoop:     "do",
	KindDoWhile:    "do while",
	KindDoForever:  "do (unconditional)",
	KindGoTo:       "go to",
	KindLabel:      "label",
	KindExit:       "exit",
	KindCycle:      "cycle",
	KindReturn:     "return",
	KindContinue:   "continue",
	KindCall:       "call",
	KindLiteral:    "literal",
	KindIdent:      "identifier",
	KindMember:     "member access",
	KindEval:       "evaluation",
	KindUnary:      "unary",
	KindOpChain:    "operator chain",
	KindArgList:    "argument list",
	KindSlice:      "slice",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsStmt reports statement kinds.
func (k NodeKind) IsStmt() bool { return k >= KindAssignment && k <= KindCall }

// Node is the closed set of AST variants; only this package implements it.
type Node interface {
	Kind() NodeKind
	node()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}
