package kernel

import (
	"fort2hip/internal/ast"
	"fort2hip/internal/directive"
	"fort2hip/internal/index"
	"fort2hip/internal/parser"
)

// Source is what a kernel is generated from: a LoopNest or a Procedure.
type Source interface {
	source()
}

// LoopNest is a directive-annotated loop nest. Body starts with the
// outermost do loop.
type LoopNest struct {
	Directive *directive.Directive
	Body      []ast.Stmt
	File      string
	Line      int
}

// Procedure is a CUDA Fortran device procedure with its body statements.
type Procedure struct {
	Record index.Record
	Body   []ast.Stmt
	File   string
	Line   int
}

func (LoopNest) source()  {}
func (Procedure) source() {}

// NestFrom parses an extracted loop nest.
func NestFrom(ns parser.NestSource) (LoopNest, error) {
	body, err := parser.ParseStatements(ns.Stmts)
	if err != nil {
		return LoopNest{}, err
	}
	return LoopNest{Directive: ns.Directive, Body: body, File: ns.File, Line: ns.Line}, nil
}
