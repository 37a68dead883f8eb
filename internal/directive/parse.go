package directive

import (
	"strings"

	"fort2hip/internal/diag"
)

// IsDirective reports whether a statement body starts with a directive
// sentinel.
func IsDirective(body string) bool {
	_, _, ok := sentinelOf(body)
	return ok
}

func sentinelOf(body string) (Sentinel, string, bool) {
	s := strings.TrimSpace(body)
	if len(s) < 5 {
		return 0, "", false
	}
	switch strings.ToLower(s[:5]) {
	case "!$acc":
		return SentinelACC, s[5:], true
	case "!$cuf":
		return SentinelCUF, s[5:], true
	}
	return 0, "", false
}

// Parse parses one directive line. Clause names are validated against the
// construct.
func Parse(body string) (*Directive, error) {
	sentinel, rest, ok := sentinelOf(body)
	if !ok {
		return nil, syntaxErr("not a directive: %q", body)
	}
	d := &Directive{Sentinel: sentinel, Text: strings.TrimSpace(body)}
	rest = strings.TrimSpace(rest)

	if sentinel == SentinelCUF {
		var err error
		if rest, err = d.parseCufHead(rest); err != nil {
			return nil, err
		}
	} else {
		lower := strings.ToLower(rest)
		for _, c := range accConstructs {
			if hasWordPrefix(lower, c) {
				d.Construct = c
				rest = strings.TrimSpace(rest[len(c):])
				break
			}
		}
		if d.Construct == "" {
			return nil, syntaxErr("unknown OpenACC construct in %q", d.Text)
		}
		if strings.HasPrefix(rest, "(") {
			inner, tail, err := parenGroup(rest)
			if err != nil {
				return nil, err
			}
			d.ConstructArgs = splitTopLevel(inner)
			rest = tail
		}
	}

	clauses, err := parseClauses(rest)
	if err != nil {
		return nil, err
	}
	for _, c := range clauses {
		if !Allowed(d.Sentinel, d.Construct, c.Name) {
			return nil, diag.Errorf(diag.KindSyntax, diag.SynUnknownClause,
				"clause %q not allowed on %s %s", c.Name, d.Sentinel, d.Construct)
		}
	}
	d.Clauses = clauses
	return d, nil
}

// parseCufHead handles "kernel do[(n)] [<<<grid, block[, shmem, stream]>>>]".
func (d *Directive) parseCufHead(rest string) (string, error) {
	lower := strings.ToLower(rest)
	if !hasWordPrefix(lower, "kernel") {
		return "", syntaxErr("unsupported CUF directive %q", d.Text)
	}
	rest = strings.TrimSpace(rest[len("kernel"):])
	if !hasWordPrefix(strings.ToLower(rest), "do") {
		return "", syntaxErr("expected 'do' after 'kernel' in %q", d.Text)
	}
	d.Construct = "kernel do"
	rest = strings.TrimSpace(rest[2:])
	if strings.HasPrefix(rest, "(") {
		inner, tail, err := parenGroup(rest)
		if err != nil {
			return "", err
		}
		d.ConstructArgs = splitTopLevel(inner)
		rest = tail
	}
	if strings.HasPrefix(rest, "<<<") {
		end := strings.Index(rest, ">>>")
		if end < 0 {
			return "", syntaxErr("unterminated launch configuration in %q", d.Text)
		}
		cfg := splitTopLevel(rest[3:end])
		if len(cfg) < 2 {
			return "", syntaxErr("launch configuration needs grid and block in %q", d.Text)
		}
		d.Grid, d.Block = cfg[0], cfg[1]
		rest = strings.TrimSpace(rest[end+3:])
	}
	return rest, nil
}

func parseClauses(rest string) ([]Clause, error) {
	var out []Clause
	for {
		rest = strings.TrimLeft(rest, " \t,")
		if rest == "" {
			return out, nil
		}
		i := 0
		for i < len(rest) && (isWordByte(rest[i])) {
			i++
		}
		if i == 0 {
			return nil, syntaxErr("unexpected %q in directive", rest)
		}
		c := Clause{Name: strings.ToLower(rest[:i])}
		rest = strings.TrimSpace(rest[i:])
		if strings.HasPrefix(rest, "(") {
			inner, tail, err := parenGroup(rest)
			if err != nil {
				return nil, err
			}
			rest = tail
			if err := c.setArgs(inner); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
}

func (c *Clause) setArgs(inner string) error {
	switch c.Name {
	case "reduction", "reduce":
		op, vars, ok := strings.Cut(inner, ":")
		if !ok {
			return syntaxErr("reduction clause needs 'op:vars', got %q", inner)
		}
		name, known := reductionOp(op)
		if !known {
			return syntaxErr("unsupported reduction operator %q", op)
		}
		c.Modifier = name
		c.Args = lowerAll(splitTopLevel(vars))
	case "gang", "worker", "vector":
		if mod, arg, ok := strings.Cut(inner, ":"); ok && isWord(strings.TrimSpace(mod)) {
			c.Modifier = strings.ToLower(strings.TrimSpace(mod))
			inner = arg
		}
		c.Args = splitTopLevel(inner)
	case "private", "firstprivate", "copy", "copyin", "copyout", "create", "present",
		"no_create", "deviceptr", "attach", "device_resident", "link", "delete", "detach":
		c.Args = lowerAll(splitTopLevel(inner))
	default:
		c.Args = splitTopLevel(inner)
	}
	return nil
}

func reductionOp(op string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "+":
		return "add", true
	case "*":
		return "mult", true
	case "max":
		return "max", true
	case "min":
		return "min", true
	case ".and.", "&&":
		return "and", true
	case ".or.", "||":
		return "or", true
	case ".eqv.":
		return "eqv", true
	case ".neqv.":
		return "neqv", true
	case "iand", "&":
		return "iand", true
	case "ior", "|":
		return "ior", true
	case "ieor", "^":
		return "ieor", true
	}
	return "", false
}

// parenGroup splits "(inner) tail" at the matching parenthesis.
func parenGroup(s string) (string, string, error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), strings.TrimSpace(s[i+1:]), nil
			}
		}
	}
	return "", "", syntaxErr("unbalanced parentheses in %q", s)
}

// splitTopLevel splits on commas outside parentheses and trims the parts.
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

func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	return len(s) == len(prefix) || !isWordByte(s[len(prefix)])
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || ((b|0x20) >= 'a' && (b|0x20) <= 'z')
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

func syntaxErr(format string, args ...any) error {
	return diag.Errorf(diag.KindSyntax, diag.SynBadDirective, format, args...)
}
