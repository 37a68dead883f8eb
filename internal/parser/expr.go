package parser

import (
	"fort2hip/internal/ast"
	"fort2hip/internal/diag"
	"fort2hip/internal/token"
)

// ParseExpr parses one expression.
func ParseExpr(src string) (ast.Expr, error) {
	c, err := newCursor(src)
	if err != nil {
		return nil, err
	}
	e, err := c.expr()
	if err != nil {
		return nil, err
	}
	if !c.eof() {
		return nil, c.exprErr("unexpected %s after expression", c.peek())
	}
	return e, nil
}

func (c *cursor) exprErr(format string, args ...any) error {
	e := c.errorf(format, args...).(*diag.Error)
	e.Code = diag.SynBadExpression
	return e
}

var relOps = map[token.Kind]string{
	token.Eq: "==", token.Ne: "/=", token.Lt: "<", token.Le: "<=", token.Gt: ">", token.Ge: ">=",
}

// level parses a left-associative run of equal-precedence operators into
// a single chain.
func (c *cursor) level(ops map[token.Kind]string, operand func() (ast.Expr, error)) (ast.Expr, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	var (
		opList   []string
		operands = []ast.Expr{first}
	)
	for {
		op, ok := ops[c.peek().Kind]
		if !ok {
			break
		}
		c.next()
		rhs, err := operand()
		if err != nil {
			return nil, err
		}
		opList = append(opList, op)
		operands = append(operands, rhs)
	}
	if len(opList) == 0 {
		return first, nil
	}
	return &ast.OpChain{Ops: opList, Operands: operands}, nil
}

func (c *cursor) expr() (ast.Expr, error) {
	return c.level(map[token.Kind]string{token.Eqv: ".eqv.", token.Neqv: ".neqv."}, c.orExpr)
}

func (c *cursor) orExpr() (ast.Expr, error) {
	return c.level(map[token.Kind]string{token.Or: ".or."}, c.andExpr)
}

func (c *cursor) andExpr() (ast.Expr, error) {
	return c.level(map[token.Kind]string{token.And: ".and."}, c.notExpr)
}

func (c *cursor) notExpr() (ast.Expr, error) {
	if c.accept(token.Not) {
		x, err := c.notExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ".not.", X: x}, nil
	}
	return c.relExpr()
}

func (c *cursor) relExpr() (ast.Expr, error) {
	return c.level(relOps, c.concatExpr)
}

func (c *cursor) concatExpr() (ast.Expr, error) {
	return c.level(map[token.Kind]string{token.Concat: "//"}, c.addExpr)
}

// addExpr: a leading sign applies to the whole first term, -a*b = -(a*b).
func (c *cursor) addExpr() (ast.Expr, error) {
	first := true
	return c.level(map[token.Kind]string{token.Plus: "+", token.Minus: "-"}, func() (ast.Expr, error) {
		lead := first
		first = false
		if c.at(token.Plus) || c.at(token.Minus) {
			op := c.next().Text
			var (
				x   ast.Expr
				err error
			)
			if lead {
				x, err = c.mulExpr()
			} else {
				x, err = c.powExpr()
			}
			if err != nil {
				return nil, err
			}
			return &ast.Unary{Op: op, X: x}, nil
		}
		return c.mulExpr()
	})
}

func (c *cursor) mulExpr() (ast.Expr, error) {
	return c.level(map[token.Kind]string{token.Star: "*", token.Slash: "/"}, c.powExpr)
}

// powExpr is right-associative; each chain holds exactly two operands.
func (c *cursor) powExpr() (ast.Expr, error) {
	base, err := c.primary()
	if err != nil {
		return nil, err
	}
	if !c.accept(token.Power) {
		return base, nil
	}
	var exp ast.Expr
	if c.at(token.Plus) || c.at(token.Minus) {
		op := c.next().Text
		x, err := c.powExpr()
		if err != nil {
			return nil, err
		}
		exp = &ast.Unary{Op: op, X: x}
	} else if exp, err = c.powExpr(); err != nil {
		return nil, err
	}
	return &ast.OpChain{Ops: []string{"**"}, Operands: []ast.Expr{base, exp}}, nil
}

func (c *cursor) primary() (ast.Expr, error) {
	t := c.peek()
	switch t.Kind {
	case token.IntLit:
		c.next()
		return ast.NewLiteral(ast.LitInteger, t.Text), nil
	case token.RealLit:
		c.next()
		return ast.NewLiteral(ast.LitReal, t.Text), nil
	case token.LogicalLit:
		c.next()
		return ast.NewLiteral(ast.LitLogical, t.Text), nil
	case token.StringLit:
		c.next()
		return ast.NewLiteral(ast.LitCharacter, t.Text), nil
	case token.LParen:
		c.next()
		e, err := c.expr()
		if err != nil {
			return nil, err
		}
		if c.at(token.Comma) {
			return nil, c.exprErr("complex constants are not supported")
		}
		if _, err := c.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case token.Ident:
		return c.designator()
	}
	return nil, c.exprErr("unexpected %s", t)
}

// designator parses name, name(args) and %-member chains.
func (c *cursor) designator() (ast.Expr, error) {
	part, err := c.designatorPart()
	if err != nil {
		return nil, err
	}
	var e = part
	for c.accept(token.Percent) {
		field, err := c.designatorPart()
		if err != nil {
			return nil, err
		}
		e = &ast.Member{Base: e, Field: field}
	}
	return e, nil
}

func (c *cursor) designatorPart() (ast.Expr, error) {
	name, err := c.expectIdent()
	if err != nil {
		return nil, err
	}
	if !c.at(token.LParen) {
		return ast.NewIdent(name), nil
	}
	args, err := c.argList()
	if err != nil {
		return nil, err
	}
	return &ast.Eval{Name: name, Args: args}, nil
}

// argList parses "(a, k=b, lo:hi:s)".
func (c *cursor) argList() (*ast.ArgList, error) {
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	l := &ast.ArgList{}
	if c.accept(token.RParen) {
		return l, nil
	}
	for {
		var a ast.Arg
		if c.at(token.Ident) && c.peekAt(1).Kind == token.Assign {
			a.Keyword = c.next().Text
			c.next()
		}
		v, err := c.sliceOrExpr()
		if err != nil {
			return nil, err
		}
		a.Value = v
		l.Args = append(l.Args, a)
		if c.accept(token.RParen) {
			return l, nil
		}
		if _, err := c.expect(token.Comma); err != nil {
			return nil, err
		}
	}
}

func (c *cursor) sliceOrExpr() (ast.Expr, error) {
	var lo ast.Expr
	var err error
	if !c.at(token.Colon) {
		if lo, err = c.expr(); err != nil {
			return nil, err
		}
		if !c.at(token.Colon) {
			return lo, nil
		}
	}
	c.next()
	s := &ast.Slice{Lo: lo}
	if !c.at(token.Colon) && !c.at(token.Comma) && !c.at(token.RParen) {
		if s.Hi, err = c.expr(); err != nil {
			return nil, err
		}
	}
	if c.accept(token.Colon) {
		if s.Stride, err = c.expr(); err != nil {
			return nil, err
		}
	}
	return s, nil
}
