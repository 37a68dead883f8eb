package ast

import "fort2hip/internal/directive"

// Assignment is "LHS = RHS".
type Assignment struct {
	LHS Expr
	RHS Expr
}

// Branch is one arm of an if construct; Cond is nil for else.
type Branch struct {
	Cond Expr
	Body []Stmt
}

// IfBlock is an if/else if/else construct. Inline marks a logical if
// statement ("if (c) stmt") with a single branch.
type IfBlock struct {
	Name     string
	Branches []*Branch
	Inline   bool
}

// Case is one case of a select construct; Values is nil for default.
// A value may be a *Slice for ranges.
type Case struct {
	Values []Expr
	Body   []Stmt
}

type SelectCase struct {
	Name     string
	Selector Expr
	Cases    []*Case
}

// DoLoop is a counted loop. Directive holds the OpenACC or CUF directive
// attached to it, if any.
type DoLoop struct {
	Name      string
	Label     string
	Index     *Ident
	First     Expr
	Last      Expr
	Step      Expr // nil means 1
	Body      []Stmt
	Directive *directive.Directive
}

type DoWhile struct {
	Name  string
	Label string
	Cond  Expr
	Body  []Stmt
}

type DoForever struct {
	Name  string
	Label string
	Body  []Stmt
}

type GoTo struct{ Label string }

// Label marks a numeric statement label.
type Label struct{ Name string }

// Exit and Cycle optionally name the construct they leave.
type Exit struct{ Construct string }

type Cycle struct{ Construct string }

type Return struct{}

type Continue struct{}

// Call is "call name(args)".
type Call struct {
	Name string
	Args *ArgList
}

func (*Assignment) Kind() NodeKind { return KindAssignment }
func (*IfBlock) Kind() NodeKind    { return KindIfBlock }
func (*SelectCase) Kind() NodeKind { return KindSelectCase }
func (*DoLoop) Kind() NodeKind     { return KindDoLoop }
func (*DoWhile) Kind() NodeKind    { return KindDoWhile }
func (*DoForever) Kind() NodeKind  { return KindDoForever }
func (*GoTo) Kind() NodeKind       { return KindGoTo }
func (*Label) Kind() NodeKind      { return KindLabel }
func (*Exit) Kind() NodeKind       { return KindExit }
func (*Cycle) Kind() NodeKind      { return KindCycle }
func (*Return) Kind() NodeKind     { return KindReturn }
func (*Continue) Kind() NodeKind   { return KindContinue }
func (*Call) Kind() NodeKind       { return KindCall }

func (*Assignment) node() {}
func (*IfBlock) node()    {}
func (*SelectCase) node() {}
func (*DoLoop) node()     {}
func (*DoWhile) node()    {}
func (*DoForever) node()  {}
func (*GoTo) node()       {}
func (*Label) node()      {}
func (*Exit) node()       {}
func (*Cycle) node()      {}
func (*Return) node()     {}
func (*Continue) node()   {}
func (*Call) node()       {}

func (*Assignment) stmt() {}
func (*IfBlock) stmt()    {}
func (*SelectCase) stmt() {}
func (*DoLoop) stmt()     {}
func (*DoWhile) stmt()    {}
func (*DoForever) stmt()  {}
func (*GoTo) stmt()       {}
func (*Label) stmt()      {}
func (*Exit) stmt()       {}
func (*Cycle) stmt()      {}
func (*Return) stmt()     {}
func (*Continue) stmt()   {}
func (*Call) stmt()       {}

// Nest returns the perfectly nested do loops starting at d, up to n of
// them: each next loop must be the only statement of the previous body.
func (d *DoLoop) Nest(n int) []*DoLoop {
	out := []*DoLoop{d}
	for cur := d; len(out) < n; {
		inner, ok := singleLoop(cur.Body)
		if !ok {
			break
		}
		out = append(out, inner)
		cur = inner
	}
	return out
}

func singleLoop(body []Stmt) (*DoLoop, bool) {
	var found *DoLoop
	for _, s := range body {
		switch x := s.(type) {
		case *Continue, *Label:
			continue
		case *DoLoop:
			if found != nil {
				return nil, false
			}
			found = x
		default:
			return nil, false
		}
	}
	return found, found != nil
}
