package parser

import (
	"strconv"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/token"
	"fort2hip/internal/types"
)

// typeSpec is the leading type of a declaration or function prefix.
type typeSpec struct {
	base string
	kind string
}

var intrinsicTypes = map[string]bool{
	"integer": true, "real": true, "logical": true, "complex": true, "character": true,
	"doubleprecision": true, "double": true,
}

// atTypeSpec reports whether the cursor starts a type specification.
func (c *cursor) atTypeSpec() bool {
	t := c.peek()
	if t.Kind != token.Ident {
		return false
	}
	if intrinsicTypes[t.Text] {
		return c.peekAt(1).Kind != token.Assign
	}
	return (t.Text == "type" || t.Text == "class") && c.peekAt(1).Kind == token.LParen
}

func (c *cursor) typeSpec() (typeSpec, error) {
	word := c.next().Text
	switch word {
	case "double":
		if !c.acceptWord("precision") {
			return typeSpec{}, c.errorf("expected 'precision'")
		}
		return typeSpec{base: types.Real, kind: "8"}, nil
	case "doubleprecision":
		return typeSpec{base: types.Real, kind: "8"}, nil
	case "type", "class":
		name, err := c.groupText()
		if err != nil {
			return typeSpec{}, err
		}
		return typeSpec{base: types.Derived, kind: strings.ToLower(name)}, nil
	}
	ts := typeSpec{base: word}
	switch {
	case c.accept(token.Star):
		// real*8, character*10, character*(*)
		if c.at(token.LParen) {
			if _, err := c.groupText(); err != nil {
				return ts, err
			}
			return ts, nil
		}
		t, err := c.expect(token.IntLit)
		if err != nil {
			return ts, err
		}
		if word == types.Character {
			return ts, nil
		}
		ts.kind = t.Text
		if word == types.Complex {
			if n, err := strconv.Atoi(t.Text); err == nil {
				ts.kind = strconv.Itoa(n / 2)
			}
		}
	case c.at(token.LParen):
		sel, err := c.groupText()
		if err != nil {
			return ts, err
		}
		ts.kind = kindSelector(word, sel)
	}
	return ts, nil
}

// kindSelector picks the kind out of "(8)", "(kind=dp)" or
// "(len=*, kind=c_char)". Character lengths are dropped.
func kindSelector(base, sel string) string {
	parts := splitTopLevel(strings.ToLower(strings.ReplaceAll(sel, " ", "")))
	for i, p := range parts {
		key, val, ok := strings.Cut(p, "=")
		switch {
		case ok && key == "kind":
			return val
		case ok:
			continue
		case base == types.Character && i == 0:
			continue // positional length
		default:
			return p
		}
	}
	return ""
}

// IsDeclaration reports whether body is a type declaration statement.
func IsDeclaration(body string) bool {
	c, err := newCursor(body)
	if err != nil || !c.atTypeSpec() {
		return false
	}
	// "integer function f()" is a header
	for _, t := range c.toks {
		if t.Is("function") {
			return false
		}
	}
	return true
}

// ParseDeclaration parses "type-spec [, attributes] [::] entities".
func ParseDeclaration(body string) ([]index.Variable, error) {
	c, err := newCursor(body)
	if err != nil {
		return nil, err
	}
	vars, err := c.declaration()
	if err != nil {
		return nil, declErr(err)
	}
	return vars, nil
}

func declErr(err error) error {
	if e, ok := err.(*diag.Error); ok && e.Code == diag.SynBadStatement {
		e.Code = diag.SynBadDeclaration
	}
	return err
}

func (c *cursor) declaration() ([]index.Variable, error) {
	if !c.atTypeSpec() {
		return nil, c.errorf("expected a type specification")
	}
	ts, err := c.typeSpec()
	if err != nil {
		return nil, err
	}
	var quals, dims []string
	for c.accept(token.Comma) {
		q, d, err := c.attribute()
		if err != nil {
			return nil, err
		}
		if d != nil {
			dims = d
			continue
		}
		quals = append(quals, q)
	}
	c.accept(token.DoubleColon)

	var out []index.Variable
	for {
		name, err := c.expectIdent()
		if err != nil {
			return nil, err
		}
		bounds := dims
		if c.at(token.LParen) {
			text, err := c.groupText()
			if err != nil {
				return nil, err
			}
			bounds = boundsOf(text)
		}
		if c.accept(token.Star) {
			// character length on the entity
			if c.at(token.LParen) {
				if _, err := c.groupText(); err != nil {
					return nil, err
				}
			} else {
				c.next()
			}
		}
		init := ""
		if c.accept(token.Assign) || c.accept(token.Arrow) {
			init = c.untilTopLevelComma()
		}
		v := index.NewVariable(name, ts.base, ts.kind, cloneStrings(quals), cloneStrings(bounds), init)
		out = append(out, v)
		if !c.accept(token.Comma) {
			break
		}
	}
	if !c.eof() {
		return nil, c.errorf("unexpected %s", c.peek())
	}
	return out, nil
}

// attribute parses one attribute; dimension(...) is returned as bounds.
func (c *cursor) attribute() (string, []string, error) {
	name, err := c.expectIdent()
	if err != nil {
		return "", nil, err
	}
	if name == "dimension" {
		text, err := c.groupText()
		if err != nil {
			return "", nil, err
		}
		return "", boundsOf(text), nil
	}
	if c.at(token.LParen) {
		text, err := c.groupText()
		if err != nil {
			return "", nil, err
		}
		return name + "(" + strings.ToLower(strings.ReplaceAll(text, " ", "")) + ")", nil, nil
	}
	return name, nil, nil
}

// untilTopLevelComma returns the raw source up to the next comma at
// parenthesis depth zero.
func (c *cursor) untilTopLevelComma() string {
	start := c.peek().Pos
	depth := 0
	for !c.eof() {
		switch c.peek().Kind {
		case token.LParen, token.LBrack:
			depth++
		case token.RParen, token.RBrack:
			depth--
		case token.Comma:
			if depth == 0 {
				return strings.TrimSpace(c.src[start:c.peek().Pos])
			}
		}
		c.next()
	}
	return strings.TrimSpace(c.src[start:])
}

// AttributeStatement is "attr [::] a, b(n)" applying attr to earlier
// declared variables.
type AttributeStatement struct {
	Attribute string
	Names     []string
	Bounds    map[string][]string // dimension statements
	Values    map[string]string   // parameter statements
}

var attributeWords = map[string]bool{
	"parameter": true, "dimension": true, "allocatable": true, "pointer": true, "target": true,
	"device": true, "managed": true, "pinned": true, "constant": true, "shared": true,
	"save": true, "value": true, "optional": true, "intent": true, "contiguous": true,
	"texture": true,
}

// IsAttributeWord reports words that start an attribute statement.
func IsAttributeWord(w string) bool { return attributeWords[w] }

// ParseAttributeStatement parses attribute statements; ok is false for any
// other statement.
func ParseAttributeStatement(body string) (AttributeStatement, bool, error) {
	c, err := newCursor(body)
	if err != nil {
		return AttributeStatement{}, false, err
	}
	if !c.at(token.Ident) || !attributeWords[c.peek().Text] {
		return AttributeStatement{}, false, nil
	}
	if k := c.peekAt(1).Kind; k == token.Assign || k == token.Percent {
		return AttributeStatement{}, false, nil
	}
	st := AttributeStatement{Attribute: c.next().Text}
	if st.Attribute == "parameter" && c.at(token.LParen) {
		// parameter (a = 1, b = 2)
		text, err := c.groupText()
		if err != nil {
			return st, true, declErr(err)
		}
		st.Values = make(map[string]string)
		for _, part := range splitTopLevel(text) {
			name, val, ok := strings.Cut(part, "=")
			if !ok {
				return st, true, declErr(c.errorf("expected name = value"))
			}
			name = strings.ToLower(strings.TrimSpace(name))
			st.Names = append(st.Names, name)
			st.Values[name] = strings.TrimSpace(val)
		}
		return st, true, nil
	}
	if st.Attribute == "intent" && c.at(token.LParen) {
		text, err := c.groupText()
		if err != nil {
			return st, true, declErr(err)
		}
		st.Attribute = "intent(" + strings.ToLower(strings.TrimSpace(text)) + ")"
	}
	c.accept(token.DoubleColon)
	for !c.eof() {
		name, err := c.expectIdent()
		if err != nil {
			return st, true, declErr(err)
		}
		st.Names = append(st.Names, name)
		if c.at(token.LParen) {
			text, err := c.groupText()
			if err != nil {
				return st, true, declErr(err)
			}
			if st.Bounds == nil {
				st.Bounds = make(map[string][]string)
			}
			st.Bounds[name] = boundsOf(text)
		}
		if !c.accept(token.Comma) {
			break
		}
	}
	if !c.eof() {
		return st, true, declErr(c.errorf("unexpected %s", c.peek()))
	}
	return st, true, nil
}

// ParseUse parses a use statement.
func ParseUse(body string) (index.UsedModule, error) {
	c, err := newCursor(body)
	if err != nil {
		return index.UsedModule{}, err
	}
	var u index.UsedModule
	fail := func(err error) (index.UsedModule, error) {
		if e, ok := err.(*diag.Error); ok && e.Code == diag.SynBadStatement {
			e.Code = diag.SynBadUse
		}
		return index.UsedModule{}, err
	}
	if !c.acceptWord("use") {
		return fail(c.errorf("expected 'use'"))
	}
	if c.accept(token.Comma) {
		q, err := c.expectIdent()
		if err != nil {
			return fail(err)
		}
		u.Qualifiers = append(u.Qualifiers, q)
		if _, err := c.expect(token.DoubleColon); err != nil {
			return fail(err)
		}
	} else {
		c.accept(token.DoubleColon)
	}
	if u.Name, err = c.expectIdent(); err != nil {
		return fail(err)
	}
	if c.eof() {
		return u, nil
	}
	if _, err := c.expect(token.Comma); err != nil {
		return fail(err)
	}
	only := false
	if c.atWord("only") && c.peekAt(1).Kind == token.Colon {
		c.next()
		c.next()
		only = true
	}
	for !c.eof() {
		var r index.Rename
		switch {
		case c.atWord("operator") || c.atWord("assignment"):
			word := c.next().Text
			text, err := c.groupText()
			if err != nil {
				return fail(err)
			}
			r.Original = word + "(" + strings.TrimSpace(text) + ")"
		default:
			if r.Original, err = c.expectIdent(); err != nil {
				return fail(err)
			}
		}
		r.Renamed = r.Original
		if c.accept(token.Arrow) {
			if r.Original, err = c.expectIdent(); err != nil {
				return fail(err)
			}
		}
		if only {
			u.Only = append(u.Only, r)
		} else {
			u.Renamings = append(u.Renamings, r)
		}
		if !c.accept(token.Comma) {
			break
		}
	}
	if !c.eof() {
		return fail(c.errorf("unexpected %s", c.peek()))
	}
	return u, nil
}

func boundsOf(text string) []string {
	return splitTopLevel(strings.ToLower(strings.ReplaceAll(text, " ", "")))
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" || len(out) > 0 {
		out = append(out, last)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
