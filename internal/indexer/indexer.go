// Package indexer builds symbol index records from a normalized statement
// stream.
package indexer

import (
	"fmt"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/directive"
	"fort2hip/internal/index"
	"fort2hip/internal/linemap"
	"fort2hip/internal/parser"
	"fort2hip/internal/source"
	"fort2hip/internal/trace"
	"fort2hip/internal/types"
)

// Options configures record construction.
type Options struct {
	// Reporter receives warnings, e.g. for directives naming undeclared
	// variables. Nil discards them.
	Reporter diag.Reporter
	Tracer   trace.Tracer
}

// FromStatements returns one record per top-level program unit of stmts.
func FromStatements(file string, stmts []linemap.Statement, opts Options) ([]index.Record, error) {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	units, err := parser.Units(stmts)
	if err != nil {
		return nil, err
	}
	b := &builder{file: file, opts: opts}
	out := make([]index.Record, 0, len(units))
	for _, u := range units {
		rec, err := b.unit(u)
		if err != nil {
			return nil, err
		}
		trace.Point(opts.Tracer, trace.ScopeUnit, "index:"+rec.Name,
			fmt.Sprintf("%s with %d variables, %d procedures", rec.Kind, len(rec.Variables), len(rec.Procedures)))
		out = append(out, rec)
	}
	return out, nil
}

type builder struct {
	file string
	opts Options
}

// routineMark is the attribute recorded for "!$acc routine".
const routineMark = "acc_routine"

func (b *builder) unit(u *parser.Unit) (index.Record, error) {
	rec := index.NewRecord(u.Kind, u.Name)
	rec.File, rec.Line = b.file, u.Line
	rec.Attributes = append(rec.Attributes, u.Attributes...)
	rec.DummyArgs = append(rec.DummyArgs, u.DummyArgs...)
	rec.ResultName = u.ResultName
	if u.ResultType != "" {
		rec.AddVariable(index.NewVariable(u.ResultName, u.ResultType, u.ResultKind, nil, nil, ""))
	}

	var (
		declares []*directive.Directive
		routines []*directive.Directive
	)
	for _, s := range u.Stmts {
		if directive.IsDirective(s.Body) {
			d, err := directive.Parse(s.Body)
			if err != nil {
				return rec, diag.Locate(err, s.Loc())
			}
			switch d.Construct {
			case "declare":
				declares = append(declares, d)
			case "routine":
				routines = append(routines, d)
			}
			continue
		}
		if err := b.statement(&rec, s); err != nil {
			return rec, diag.Locate(err, s.Loc())
		}
	}

	for _, ch := range u.Children {
		child, err := b.unit(ch)
		if err != nil {
			return rec, err
		}
		if ch.Kind == index.KindType {
			rec.Types = append(rec.Types, child)
		} else {
			rec.Procedures = append(rec.Procedures, child)
		}
	}

	for _, d := range declares {
		b.declare(&rec, d, u)
	}
	for _, d := range routines {
		b.routine(&rec, d, u)
	}
	return rec, nil
}

func (b *builder) statement(rec *index.Record, s linemap.Statement) error {
	body := s.Body
	switch word := firstWord(body); {
	case word == "use":
		u, err := parser.ParseUse(body)
		if err != nil {
			return err
		}
		rec.UsedModules = append(rec.UsedModules, u)
	case word == "implicit":
		if strings.EqualFold(strings.Join(strings.Fields(body), " "), "implicit none") {
			rec.ImplicitNone = true
		}
	case parser.IsDeclaration(body):
		vars, err := parser.ParseDeclaration(body)
		if err != nil {
			return err
		}
		for _, v := range vars {
			rec.AddVariable(v)
		}
	case parser.IsAttributeWord(word):
		st, ok, err := parser.ParseAttributeStatement(body)
		if err != nil || !ok {
			return err
		}
		applyAttribute(rec, st)
	}
	return nil
}

// applyAttribute applies an attribute statement to earlier declarations.
// Names without a declaration get an implicitly typed one.
func applyAttribute(rec *index.Record, st parser.AttributeStatement) {
	for _, name := range st.Names {
		v, ok := rec.Variable(name)
		if !ok {
			rec.AddVariable(implicitVariable(name))
			v, _ = rec.Variable(name)
		}
		switch st.Attribute {
		case "dimension":
			v.SetBounds(st.Bounds[name])
			continue
		case "parameter":
			v.Initializer = st.Values[name]
		}
		if bounds, ok := st.Bounds[name]; ok {
			v.SetBounds(bounds)
		}
		v.AddQualifier(st.Attribute)
	}
}

func implicitVariable(name string) index.Variable {
	base := types.Real
	if c := name[0]; c >= 'i' && c <= 'n' {
		base = types.Integer
	}
	return index.NewVariable(name, base, "", nil, nil, "")
}

// declare records the device mapping of "!$acc declare" clauses.
func (b *builder) declare(rec *index.Record, d *directive.Directive, u *parser.Unit) {
	for _, c := range d.Clauses {
		target, ok := directive.DeclareMapping(c.Name)
		if !ok {
			continue
		}
		for _, name := range c.Args {
			v, ok := rec.Variable(name)
			if !ok {
				diag.ReportWarning(b.opts.Reporter, diag.LookupVariableUnknown, b.pos(u),
					fmt.Sprintf("acc declare names undeclared variable %q in %s", name, rec.Name)).Emit()
				continue
			}
			v.DeclareOnTarget = target
		}
	}
}

// routine marks the enclosing procedure, or the procedure named by
// "!$acc routine(name)".
func (b *builder) routine(rec *index.Record, d *directive.Directive, u *parser.Unit) {
	target := rec
	if len(d.ConstructArgs) > 0 {
		name := strings.ToLower(d.ConstructArgs[0])
		p, ok := rec.Procedure(name)
		if !ok && !strings.EqualFold(rec.Name, name) {
			diag.ReportWarning(b.opts.Reporter, diag.LookupProcUnknown, b.pos(u),
				fmt.Sprintf("acc routine names unknown procedure %q", name)).Emit()
			return
		}
		if ok {
			target = p
		}
	}
	if !target.HasAttribute(routineMark) {
		target.Attributes = append(target.Attributes, routineMark)
	}
}

func (b *builder) pos(u *parser.Unit) source.Pos {
	return source.Pos{File: b.file, Line: u.Line}
}

func firstWord(body string) string {
	end := strings.IndexFunc(body, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if end < 0 {
		end = len(body)
	}
	return strings.ToLower(body[:end])
}
