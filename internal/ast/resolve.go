package ast

import (
	"strconv"
	"strings"

	"fort2hip/internal/index"
	"fort2hip/internal/scope"
	"fort2hip/internal/types"
)

// Resolve attaches type metadata to every symbol reference and literal
// under stmts. References that cannot be found stay unresolved; a strict
// scope turns that into an error, which stops the pass.
func Resolve(stmts []Stmt, sc *scope.Scope) error {
	r := &resolver{sc: sc}
	for _, s := range stmts {
		Walk(s, r.visit)
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

// ResolveExpr resolves a single expression.
func ResolveExpr(e Expr, sc *scope.Scope) error {
	r := &resolver{sc: sc}
	Walk(e, r.visit)
	return r.err
}

type resolver struct {
	sc  *scope.Scope
	err error
}

func (r *resolver) fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *resolver) visit(n Node) bool {
	if r.err != nil {
		return false
	}
	switch x := n.(type) {
	case *Ident:
		x.Tag = r.sc.Tag
		if IsBuiltin(x.Name) {
			return false
		}
		v, found, err := r.sc.LookupVariable(x.Name)
		r.fail(err)
		if found {
			x.Meta = metaOf(v)
		}
	case *Eval:
		x.Tag = r.sc.Tag
		x.Meta = r.evalMeta(x.Name)
	case *Member:
		r.member(x)
		return false
	case *Literal:
		r.literal(x)
	}
	return true
}

func (r *resolver) evalMeta(name string) *Meta {
	if v, ok := r.sc.Variable(name); ok {
		m := metaOf(v)
		m.IsCall = !m.IsArray
		return m
	}
	if p, ok := r.sc.Procedure(name); ok {
		m := &Meta{IsCall: true}
		if res, ok := p.Variable(resultName(p)); ok {
			m = metaOf(*res)
			m.IsArray, m.IsCall = false, true
		}
		return m
	}
	if IsBuiltin(name) {
		return &Meta{IsCall: true}
	}
	v, found, err := r.sc.LookupVariable(name)
	r.fail(err)
	if !found {
		return nil
	}
	m := metaOf(v)
	m.IsCall = !m.IsArray
	return m
}

func resultName(p index.Record) string {
	if p.ResultName != "" {
		return p.ResultName
	}
	return p.Name
}

// member resolves every segment of an access path: a%b(i)%c.
func (r *resolver) member(m *Member) {
	segs := flattenMember(m)
	defer func() {
		for _, s := range segs {
			if e, ok := s.(*Eval); ok && e.Args != nil {
				Walk(e.Args, r.visit)
			}
		}
	}()
	if builtinRoots[symbolName(segs[0])] {
		return
	}
	path := make([]string, 0, len(segs))
	for i, s := range segs {
		path = append(path, symbolName(s))
		key := strings.Join(path, "%")
		var (
			v     index.Variable
			found bool
		)
		if i == len(segs)-1 {
			var err error
			v, found, err = r.sc.LookupVariable(key)
			r.fail(err)
		} else {
			v, found = r.sc.Variable(key)
		}
		if !found {
			return
		}
		meta := metaOf(v)
		switch x := s.(type) {
		case *Ident:
			x.Tag, x.Meta = r.sc.Tag, meta
		case *Eval:
			x.Tag, x.Meta = r.sc.Tag, meta
		}
		if i == len(segs)-1 {
			m.Meta = meta
		}
	}
	for cur, ok := m.Base.(*Member); ok; cur, ok = cur.Base.(*Member) {
		if v, found := r.sc.Variable(cur.Path()); found {
			cur.Meta = metaOf(v)
		}
	}
}

func flattenMember(e Expr) []Expr {
	if m, ok := e.(*Member); ok {
		return append(flattenMember(m.Base), flattenMember(m.Field)...)
	}
	return []Expr{e}
}

func (r *resolver) literal(l *Literal) {
	if l.Type != LitInteger && l.Type != LitReal {
		return
	}
	if l.KindParam != "" {
		if _, numeric := types.ParseKind(l.KindParam); !numeric {
			base := types.Integer
			if l.Type == LitReal {
				base = types.Real
			}
			if n, ok := r.namedKindBytes(base, l.KindParam, 0); ok {
				l.Bytes = n
			}
			return
		}
	}
	if n, err := l.Width(); err == nil {
		l.Bytes = n
	}
}

var isoKinds = map[string]int{
	"real32": 4, "real64": 8, "real128": 16,
	"int8": 1, "int16": 2, "int32": 4, "int64": 8,
}

// namedKindBytes evaluates a named kind parameter: iso_c_binding and
// iso_fortran_env names, or a parameter initialized with a literal kind,
// kind(...) or selected_*_kind(...).
func (r *resolver) namedKindBytes(base, name string, depth int) (int, bool) {
	if depth > 4 {
		return 0, false
	}
	if n, err := types.Bytes(base, name); err == nil {
		return n, true
	}
	if n, ok := isoKinds[name]; ok {
		return n, true
	}
	v, ok := r.sc.Variable(name)
	if !ok || !v.IsParameter() {
		return 0, false
	}
	init := strings.ToLower(strings.ReplaceAll(v.Initializer, " ", ""))
	if n, ok := types.ParseKind(init); ok {
		if b, err := types.Bytes(base, strconv.Itoa(n)); err == nil {
			return b, true
		}
		return 0, false
	}
	call, arg, ok := strings.Cut(init, "(")
	arg = strings.TrimSuffix(arg, ")")
	if !ok {
		return r.namedKindBytes(base, init, depth+1)
	}
	switch call {
	case "kind":
		lt := LitInteger
		if strings.ContainsAny(arg, ".ed") {
			lt = LitReal
		}
		n, err := NewLiteral(lt, arg).Width()
		return n, err == nil
	case "selected_real_kind":
		p, err := strconv.Atoi(strings.Split(arg, ",")[0])
		if err != nil {
			return 0, false
		}
		switch {
		case p <= 6:
			return 4, true
		case p <= 15:
			return 8, true
		}
		return 16, true
	case "selected_int_kind":
		digits, err := strconv.Atoi(arg)
		if err != nil {
			return 0, false
		}
		switch {
		case digits <= 2:
			return 1, true
		case digits <= 4:
			return 2, true
		case digits <= 9:
			return 4, true
		case digits <= 18:
			return 8, true
		}
		return 16, true
	}
	return 0, false
}

func metaOf(v index.Variable) *Meta {
	m := &Meta{
		BaseType:  v.BaseType,
		KindParam: v.KindParam,
		Rank:      v.Rank,
		IsArray:   v.Rank > 0,
		Param:     v.IsParameter(),
	}
	if n, err := types.Bytes(v.BaseType, v.KindParam); err == nil {
		m.Bytes = n
	}
	if c, err := types.CType(v.BaseType, v.KindParam); err == nil {
		m.CType = c
	}
	return m
}

// VariableMeta returns the metadata of a reference to v. Named kind
// parameters are evaluated in sc.
func VariableMeta(v index.Variable, sc *scope.Scope) *Meta {
	m := metaOf(v)
	if m.CType != "" || v.KindParam == "" {
		return m
	}
	r := &resolver{sc: sc}
	n, ok := r.namedKindBytes(v.BaseType, v.KindParam, 0)
	if !ok {
		return m
	}
	kind := n
	if base, _ := types.Normalize(v.BaseType, ""); base == types.Complex {
		kind = n / 2
	}
	if c, err := types.CType(v.BaseType, strconv.Itoa(kind)); err == nil {
		m.CType, m.Bytes = c, n
	}
	return m
}
