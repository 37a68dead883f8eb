package ast

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(e Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	addStmts := func(body []Stmt) {
		for _, s := range body {
			out = append(out, s)
		}
	}
	switch x := n.(type) {
	case *Assignment:
		add(x.LHS)
		add(x.RHS)
	case *IfBlock:
		for _, b := range x.Branches {
			add(b.Cond)
			addStmts(b.Body)
		}
	case *SelectCase:
		add(x.Selector)
		for _, c := range x.Cases {
			for _, v := range c.Values {
				add(v)
			}
			addStmts(c.Body)
		}
	case *DoLoop:
		if x.Index != nil {
			out = append(out, x.Index)
		}
		add(x.First)
		add(x.Last)
		add(x.Step)
		addStmts(x.Body)
	case *DoWhile:
		add(x.Cond)
		addStmts(x.Body)
	case *DoForever:
		addStmts(x.Body)
	case *Call:
		if x.Args != nil {
			out = append(out, x.Args)
		}
	case *Member:
		add(x.Base)
		add(x.Field)
	case *Eval:
		if x.Args != nil {
			out = append(out, x.Args)
		}
	case *Unary:
		add(x.X)
	case *OpChain:
		for _, o := range x.Operands {
			add(o)
		}
	case *ArgList:
		for _, a := range x.Args {
			add(a.Value)
		}
	case *Slice:
		add(x.Lo)
		add(x.Hi)
		add(x.Stride)
	case *GoTo, *Label, *Exit, *Cycle, *Return, *Continue, *Literal, *Ident:
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// WalkStmts walks every statement of body.
func WalkStmts(body []Stmt, fn func(Node) bool) {
	for _, s := range body {
		Walk(s, fn)
	}
}

// Idents returns the symbol names referenced under the given nodes, in
// first-use order. Member accesses contribute their root only; procedure
// names of call statements are not included.
func Idents(nodes ...Node) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var visit func(Node) bool
	visit = func(n Node) bool {
		switch x := n.(type) {
		case *Ident:
			add(x.Name)
		case *Eval:
			add(x.Name)
		case *Member:
			Walk(x.Base, visit)
			if f, ok := x.Field.(*Eval); ok && f.Args != nil {
				Walk(f.Args, visit)
			}
			return false
		}
		return true
	}
	for _, n := range nodes {
		Walk(n, visit)
	}
	return out
}
