package kernel

import (
	"fmt"
	"slices"
	"strings"

	"fort2hip/internal/ast"
	"fort2hip/internal/directive"
	"fort2hip/internal/index"
	"fort2hip/internal/parser"
)

type class uint8

const (
	classGlobal class = iota
	classReduced
	classShared
	classLocal
)

// symbols lists the variables referenced in body in first-use order,
// lower case, without builtins and procedure names.
func (b *builder) symbols(body []ast.Stmt) []string {
	calls := make(map[string]bool)
	nodes := make([]ast.Node, 0, len(body))
	for _, s := range body {
		nodes = append(nodes, s)
		ast.Walk(s, func(n ast.Node) bool {
			if e, ok := n.(*ast.Eval); ok && e.Meta != nil && e.Meta.IsCall && !e.Meta.IsArray {
				calls[strings.ToLower(e.Name)] = true
			}
			return true
		})
	}
	seen := make(map[string]bool)
	var out []string
	for _, name := range ast.Idents(nodes...) {
		name = strings.ToLower(name)
		if seen[name] || calls[name] || ast.IsBuiltin(name) {
			continue
		}
		if _, ok := b.sc.Procedure(name); ok {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// variable looks name up and converts it. Unknown variables of a lenient
// scope keep an empty C type.
func (b *builder) variable(name string) (Var, index.Variable, error) {
	v, found, err := b.sc.LookupVariable(name)
	if err != nil {
		return Var{}, v, err
	}
	out := Var{
		Name:       name,
		FType:      v.BaseType,
		Kind:       v.KindParam,
		Rank:       v.Rank,
		Bounds:     slices.Clone(v.Bounds),
		Qualifiers: slices.Clone(v.Qualifiers),
	}
	if found {
		m := ast.VariableMeta(v, b.sc)
		out.CType, out.Bytes = m.CType, m.Bytes
	}
	return out, v, nil
}

// constant renders the initializer of a scalar named constant; ok is
// false for anything else.
func (b *builder) constant(v index.Variable) (string, bool) {
	if !v.IsParameter() || v.Rank > 0 || v.Initializer == "" {
		return "", false
	}
	e, err := parser.ParseExpr(v.Initializer)
	if err != nil {
		return "", false
	}
	if err := ast.ResolveExpr(e, b.sc); err != nil {
		return "", false
	}
	s, err := b.hip(e)
	return s, err == nil
}

// declOrder ranks names by their position in the scope.
func (b *builder) declOrder() map[string]int {
	rank := make(map[string]int)
	for i, v := range b.sc.Variables() {
		rank[strings.ToLower(v.Name)] = i
	}
	return rank
}

// classifyNest sorts the variables of a loop nest into the four kernel
// classes.
func (b *builder) classifyNest(body []ast.Stmt, dir *directive.Directive) error {
	reducedOp := make(map[string]string)
	var reducedOrder []string
	for _, r := range dir.Reductions() {
		for _, v := range lowerAll(r.Vars) {
			if _, dup := reducedOp[v]; !dup {
				reducedOrder = append(reducedOrder, v)
			}
			reducedOp[v] = r.Op
		}
	}
	private := make(map[string]bool)
	for _, v := range lowerAll(dir.Private()) {
		private[v] = true
	}
	gangOnly := dir.Gang() && !dir.Worker() && !dir.Vector()
	indices := make(map[string]bool)
	ast.WalkStmts(body, func(n ast.Node) bool {
		if d, ok := n.(*ast.DoLoop); ok && d.Index != nil {
			indices[strings.ToLower(d.Index.Name)] = true
		}
		return true
	})

	classify := func(name string, v index.Variable) class {
		switch {
		case reducedOp[name] != "":
			return classReduced
		case v.HasQualifier("shared") || (gangOnly && private[name]):
			return classShared
		case indices[name] || private[name]:
			return classLocal
		}
		return classGlobal
	}
	reduced := make(map[string]Var)
	var global []Var
	for _, name := range b.symbols(body) {
		kv, v, err := b.variable(name)
		if err != nil {
			return err
		}
		if val, ok := b.constant(v); ok {
			kv.Value = val
			b.ctx.LocalVars = append(b.ctx.LocalVars, kv)
			continue
		}
		switch classify(name, v) {
		case classReduced:
			kv.Op = reducedOp[name]
			reduced[name] = kv
		case classShared:
			b.ctx.SharedVars = append(b.ctx.SharedVars, kv)
		case classLocal:
			b.ctx.LocalVars = append(b.ctx.LocalVars, kv)
		default:
			global = append(global, kv)
		}
	}
	for _, name := range reducedOrder {
		kv, ok := reduced[name]
		if !ok {
			// reduced but never referenced in the body
			var err error
			if kv, _, err = b.variable(name); err != nil {
				return err
			}
			kv.Op = reducedOp[name]
		}
		b.ctx.GlobalReducedVars = append(b.ctx.GlobalReducedVars, kv)
	}
	b.ctx.GlobalVars = sortByDecl(global, b.declOrder())
	return nil
}

// sortByDecl orders vars by declaration; variables without a
// declaration keep their first-use order behind the declared ones.
func sortByDecl(vars []Var, rank map[string]int) []Var {
	slices.SortStableFunc(vars, func(a, c Var) int {
		ra, okA := rank[a.Name]
		rc, okC := rank[c.Name]
		switch {
		case okA && okC:
			return ra - rc
		case okA:
			return -1
		case okC:
			return 1
		}
		return 0
	})
	return vars
}

// procedure builds a kernel from a device procedure: dummy arguments
// become kernel arguments, the other declarations thread-local or
// shared variables.
func (b *builder) procedure(src Procedure) error {
	rec := src.Record
	switch {
	case rec.HasAttribute("global"):
		b.ctx.Kind = KindGlobal
		b.ctx.Launchers = launchers(b.name, "hip")
	case rec.HasAttribute("device") || rec.HasAttribute("acc_routine"):
		b.ctx.Kind = KindDevice
	default:
		return fmt.Errorf("procedure %s is neither a kernel nor a device procedure", rec.Name)
	}
	if err := ast.Resolve(src.Body, b.sc); err != nil {
		return err
	}
	body, err := ast.HIPStmts(src.Body, b.hipOpts(), 0)
	if err != nil {
		return err
	}
	if rec.Kind == index.KindFunction {
		res := rec.ResultName
		if res == "" {
			res = rec.Name
		}
		b.ctx.ResultVar = res
		if v, ok := rec.Variable(res); ok {
			b.ctx.ResultType = ast.VariableMeta(*v, b.sc).CType
		}
		body = strings.ReplaceAll(body, "return;", "return "+res+";")
		body += "return " + res + ";\n"
	}
	b.ctx.CBody = body
	b.ctx.FBody = ast.FortranStmts(src.Body, b.opts.Style)
	b.ctx.Hash = contentHash(b.name, strings.Join(rec.Attributes, ","), b.ctx.FBody)

	names := append([]string(nil), lowerAll(rec.DummyArgs)...)
	for _, n := range b.symbols(src.Body) {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	for _, v := range rec.Variables {
		if n := strings.ToLower(v.Name); !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	for _, name := range names {
		kv, v, err := b.variable(name)
		if err != nil {
			return err
		}
		local, declared := rec.Variable(name)
		switch {
		case rec.IsDummy(name):
			b.ctx.GlobalVars = append(b.ctx.GlobalVars, kv)
		case declared && name == b.ctx.ResultVar:
		case declared && local.HasQualifier("shared"):
			b.ctx.SharedVars = append(b.ctx.SharedVars, kv)
		default:
			val, isConst := b.constant(v)
			if !declared && !isConst {
				b.ctx.GlobalVars = append(b.ctx.GlobalVars, kv)
				continue
			}
			kv.Value = val
			b.ctx.LocalVars = append(b.ctx.LocalVars, kv)
		}
	}
	return nil
}
