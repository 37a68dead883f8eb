package parser

import (
	"fort2hip/internal/diag"
	"fort2hip/internal/directive"
	"fort2hip/internal/linemap"
	"fort2hip/internal/token"
)

// NestSource is one directive-annotated loop nest cut out of a unit body:
// the directive statement through the end of the loop it annotates.
type NestSource struct {
	Directive *directive.Directive // merged with an enclosing compute region
	Stmts     []linemap.Statement
	File      string
	Line      int
}

// LoopNests finds the outermost annotated loop nests of a statement
// stream. Host code in between is never parsed beyond its first tokens.
func LoopNests(stmts []linemap.Statement) ([]NestSource, error) {
	lines, err := prepare(stmts, true)
	if err != nil {
		return nil, err
	}
	var (
		out    []NestSource
		region *directive.Directive
	)
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.dir == nil {
			continue
		}
		d := l.dir
		switch {
		case d.IsEnd():
			if d.Construct == "end parallel" || d.Construct == "end kernels" || d.Construct == "end serial" {
				region = nil
			}
			continue
		case !d.IsLoop():
			if d.IsCompute() {
				region = d
			}
			continue
		}
		end, err := nestEnd(lines, i+1)
		if err != nil {
			return nil, diag.Locate(err, l.loc())
		}
		ns := NestSource{
			Directive: directive.Merge(region, d),
			File:      l.stmt.File,
			Line:      l.stmt.Line,
		}
		for _, x := range lines[i : end+1] {
			ns.Stmts = append(ns.Stmts, x.stmt)
		}
		out = append(out, ns)
		i = end
	}
	return out, nil
}

// nestEnd returns the index of the statement that closes the do loop
// starting at or after from (skipping further directives).
func nestEnd(lines []*line, from int) (int, error) {
	var (
		depth  int
		labels []string
	)
	for i := from; i < len(lines); i++ {
		l := lines[i]
		if l.dir != nil {
			continue
		}
		if depth == 0 && l.first() != "do" && l.first() != "dowhile" {
			return 0, diag.Errorf(diag.KindSyntax, diag.SynBadDirective, "loop directive is not followed by a do loop")
		}
		switch {
		case l.first() == "do" || l.first() == "dowhile":
			depth++
			if lbl := doLabel(l.c); lbl != "" {
				labels = append(labels, lbl)
			}
		case l.isEnd("do"):
			depth--
		}
		for l.label != "" && len(labels) > 0 && labels[len(labels)-1] == l.label {
			labels = labels[:len(labels)-1]
			depth--
		}
		if depth == 0 {
			return i, nil
		}
	}
	return 0, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "missing 'end do'")
}

// doLabel returns the terminal label of "do 10 i = 1, n".
func doLabel(c *cursor) string {
	if !c.atWord("do") {
		return ""
	}
	if t := c.peekAt(1); t.Kind == token.IntLit {
		return t.Text
	}
	return ""
}
