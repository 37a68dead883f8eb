// Package scope builds the merged symbol view visible at a program-unit
// path ("module:subroutine:...") from the index.
package scope

import (
	"errors"
	"fmt"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/source"
	"fort2hip/internal/trace"
	"fort2hip/internal/types"
)

// Unknown is the variable returned by lenient lookups that fail.
var Unknown = index.Variable{Name: "unknown", BaseType: "?", KindParam: "?", Rank: -1}

// Scope is the resolved view for one tag. Each category is a stack;
// symbols pushed later shadow earlier ones with the same name.
type Scope struct {
	Tag          string
	ImplicitNone bool

	vars  stack[index.Variable]
	types stack[index.Record]
	procs stack[index.Record]
	seq   uint64
	opts  *Options
}

func newScope(tag string, opts *Options) *Scope {
	return &Scope{Tag: tag, opts: opts}
}

func (s *Scope) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Scope) pushVariable(v index.Variable) { s.vars.push(s.next(), v) }
func (s *Scope) pushType(r index.Record)       { s.types.push(s.next(), r) }
func (s *Scope) pushProcedure(r index.Record)  { s.procs.push(s.next(), r) }

// pushRecord appends the declarations of r.
func (s *Scope) pushRecord(r *index.Record) {
	for _, v := range r.Variables {
		s.pushVariable(v)
	}
	for _, t := range r.Types {
		s.pushType(t)
	}
	for _, p := range r.Procedures {
		s.pushProcedure(p)
	}
}

// clone copies s deeply under a new tag.
func (s *Scope) clone(tag string) *Scope {
	return &Scope{
		Tag:          tag,
		ImplicitNone: s.ImplicitNone,
		vars:         s.vars.clone(index.Variable.Clone),
		types:        s.types.clone(index.Record.Clone),
		procs:        s.procs.clone(index.Record.Clone),
		seq:          s.seq,
		opts:         s.opts,
	}
}

// Variables returns the visible variables in push order, shadowed ones
// included.
func (s *Scope) Variables() []index.Variable { return s.vars.values() }

func (s *Scope) Types() []index.Record { return s.types.values() }

func (s *Scope) Procedures() []index.Record { return s.procs.values() }

// Validate checks that every category honors "later appended means higher
// priority".
func (s *Scope) Validate() error {
	return errors.Join(
		s.vars.validate("variable"),
		s.types.validate("type"),
		s.procs.validate("procedure"),
	)
}

func varName(v *index.Variable) string { return v.Name }
func recName(r *index.Record) string   { return r.Name }

// LookupVariable resolves a plain name or a derived-type member path such
// as "a%b(i)%c". Array subscripts on path segments are ignored.
func (s *Scope) LookupVariable(expr string) (index.Variable, bool, error) {
	v, msg, ok := s.findVariable(expr)
	if ok {
		return v, true, nil
	}
	if path := splitMemberPath(expr); len(path) == 1 && !s.ImplicitNone {
		return implicitVariable(path[0]), true, nil
	}
	return s.missVariable(expr, msg)
}

// Variable is LookupVariable without implicit typing and without the
// failure policy.
func (s *Scope) Variable(expr string) (index.Variable, bool) {
	v, _, ok := s.findVariable(expr)
	return v, ok
}

// Procedure finds a procedure without applying the failure policy.
func (s *Scope) Procedure(name string) (index.Record, bool) {
	return s.procs.find(strings.TrimSpace(name), recName)
}

func (s *Scope) findVariable(expr string) (index.Variable, string, bool) {
	path := splitMemberPath(expr)
	if len(path) == 0 {
		return index.Variable{}, "empty variable expression", false
	}
	v, ok := s.vars.find(path[0], varName)
	if !ok {
		return v, fmt.Sprintf("no entry found for variable %q", path[0]), false
	}
	for _, member := range path[1:] {
		if v.BaseType != types.Derived {
			return v, fmt.Sprintf("%q is not of derived type", v.Name), false
		}
		typ, ok := s.types.find(v.KindParam, recName)
		if !ok {
			return v, fmt.Sprintf("no entry found for type %q", v.KindParam), false
		}
		m, ok := typ.Variable(member)
		if !ok {
			return v, fmt.Sprintf("type %q has no member %q", typ.Name, member), false
		}
		v = *m
	}
	return v, "", true
}

// LookupType finds a derived type by name.
func (s *Scope) LookupType(name string) (index.Record, bool, error) {
	if t, ok := s.types.find(strings.TrimSpace(name), recName); ok {
		return t, true, nil
	}
	return index.Record{}, false, s.miss(diag.LookupTypeUnknown, fmt.Sprintf("no entry found for type %q", name))
}

// LookupProcedure finds a procedure by name.
func (s *Scope) LookupProcedure(name string) (index.Record, bool, error) {
	if p, ok := s.Procedure(name); ok {
		return p, true, nil
	}
	return index.Record{}, false, s.miss(diag.LookupProcUnknown, fmt.Sprintf("no entry found for procedure %q", name))
}

func (s *Scope) missVariable(expr, msg string) (index.Variable, bool, error) {
	u := Unknown
	u.Name = strings.ToLower(strings.TrimSpace(expr))
	return u, false, s.miss(diag.LookupVariableUnknown, msg)
}

// miss applies the failure policy: strict returns a lookup error, lenient
// reports a warning and returns nil.
func (s *Scope) miss(code diag.Code, msg string) error {
	if s.opts == nil {
		return diag.Errorf(diag.KindLookup, code, "%s", msg)
	}
	return s.opts.fail(code, s.Tag, msg)
}

// splitMemberPath turns "A%b(i, j)%c" into [a b c].
func splitMemberPath(expr string) []string {
	expr = strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	if expr == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i <= len(expr); i++ {
		if i < len(expr) {
			switch expr[i] {
			case '(':
				depth++
				continue
			case ')':
				depth--
				continue
			case '%':
				if depth != 0 {
					continue
				}
			default:
				continue
			}
		}
		seg, _, _ := strings.Cut(expr[start:i], "(")
		out = append(out, seg)
		start = i + 1
	}
	return out
}

// implicitVariable applies the default typing rule: names starting with
// i to n are integers, everything else is real.
func implicitVariable(name string) index.Variable {
	base := types.Real
	if c := name[0]; c >= 'i' && c <= 'n' {
		base = types.Integer
	}
	v := index.NewVariable(name, base, "", nil, nil, "")
	v.AddQualifier("implicit")
	return v
}

// fail is shared by scopes and the resolver.
func (o *Options) fail(code diag.Code, tag, msg string) error {
	if o.Strict {
		return diag.Errorf(diag.KindLookup, code, "%s", msg)
	}
	if o.Reporter != nil {
		diag.ReportWarning(o.Reporter, code, source.Pos{}, msg).
			WithNote(source.Pos{}, "in scope "+tag).
			Emit()
	}
	trace.Point(o.Tracer, trace.ScopeUnit, "scope:"+tag, msg)
	return nil
}
