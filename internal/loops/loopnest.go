package loops

import (
	"fmt"
	"strings"

	"fort2hip/internal/diag"
)

// Loopnest is a perfectly nested sequence of loops, outermost first. Only
// the first loop carries partitioning information.
type Loopnest struct {
	Loops []*Loop
}

func NewLoopnest(loops ...*Loop) *Loopnest {
	return &Loopnest{Loops: loops}
}

func (n *Loopnest) Len() int { return len(n.Loops) }

// Collapse fuses the nest into one loop over the product of the trip
// counts. The body recovers every original index with
// gpufort::outermost_index, outermost loop first.
func (n *Loopnest) Collapse(lb *Labeler) (*Loop, error) {
	if len(n.Loops) == 0 {
		return nil, diag.Errorf(diag.KindArity, diag.LoopBadBounds, "cannot collapse an empty loop nest")
	}
	var prolog strings.Builder
	lens := make([]string, len(n.Loops))
	for i, l := range n.Loops {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		prolog.WriteString(l.Prolog)
		lens[i] = lb.Unique("len")
		prolog.WriteString(constIntDecl(lens[i], l.Length()))
	}
	total := lb.Unique("total_len")
	prolog.WriteString(constIntDecl(total, strings.Join(lens, "*")))
	idx := lb.Unique("idx")
	prolog.WriteString(intDecl(idx, ""))

	rem, denom := lb.Unique("rem"), lb.Unique("denom")
	var body strings.Builder
	body.WriteString(intDecl(rem, "$idx$"))
	body.WriteString(intDecl(denom, total))
	for i, l := range n.Loops {
		args := []string{rem + "/*inout*/", denom + "/*inout*/", l.First, lens[i]}
		if l.Step != "" {
			args = append(args, l.Step)
		}
		fmt.Fprintf(&body, "%s = gpufort::outermost_index(%s);\n", l.Index, strings.Join(args, ","))
	}
	epilog, indent := "", ""
	for _, l := range n.Loops {
		body.WriteString(indentText(l.BodyProlog, indent))
		epilog = indentText(l.BodyEpilog, indent) + epilog
		indent += l.BodyExtraIndent
	}

	first := n.Loops[0]
	c := ByLength(idx, "0", total, "")
	c.Gang, c.Worker, c.Vector = first.Gang, first.Worker, first.Vector
	c.NumGangs, c.NumWorkers, c.VectorLength = first.NumGangs, first.NumWorkers, first.VectorLength
	c.Prolog = prolog.String()
	c.BodyProlog = body.String()
	c.BodyEpilog = epilog
	c.BodyExtraIndent = indent
	return c, nil
}

// Tile tiles every loop of the nest with the matching size. The result
// holds the tile loops followed by the element loops, each group
// optionally collapsed into a single loop.
func (n *Loopnest) Tile(lb *Labeler, sizes []string, collapseTiles, collapseElems bool) (*Loopnest, error) {
	if len(sizes) != len(n.Loops) {
		return nil, diag.Errorf(diag.KindArity, diag.LoopTileArity,
			"%d tile sizes for %d loops", len(sizes), len(n.Loops))
	}
	tiles, elems := &Loopnest{}, &Loopnest{}
	for i, l := range n.Loops {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		t, e := l.Tile(lb, sizes[i], "")
		tiles.Loops = append(tiles.Loops, t)
		elems.Loops = append(elems.Loops, e)
	}
	for _, group := range [][]*Loop{tiles.Loops[1:], elems.Loops[1:]} {
		for _, l := range group {
			l.Gang, l.Worker, l.Vector = false, false, false
		}
	}
	out := &Loopnest{}
	for _, g := range []struct {
		nest     *Loopnest
		collapse bool
	}{{tiles, collapseTiles}, {elems, collapseElems}} {
		if !g.collapse {
			out.Loops = append(out.Loops, g.nest.Loops...)
			continue
		}
		c, err := g.nest.Collapse(lb)
		if err != nil {
			return nil, err
		}
		out.Loops = append(out.Loops, c)
	}
	return out, nil
}

// MapToHIP renders the nest, nesting each loop's rendering into the body
// of its parent, and removes helper declarations that ended up unused.
func (n *Loopnest) MapToHIP(lb *Labeler) (Mapped, error) {
	var grid, acc bool
	for _, l := range n.Loops {
		if err := l.Validate(); err != nil {
			return Mapped{}, err
		}
		grid = grid || l.Grid != GridNone
		acc = acc || l.directivePartitioned()
	}
	if grid && acc {
		return Mapped{}, diag.Errorf(diag.KindMixedPartitioning, diag.LoopMixedPartitioning,
			"cannot mix gang/worker/vector partitioning with HIP grid partitioning")
	}
	var out Mapped
	var open strings.Builder
	for _, l := range n.Loops {
		m, err := l.MapToHIP(lb)
		if err != nil {
			return Mapped{}, err
		}
		if err := m.Filter.Validate(); err != nil {
			return Mapped{}, err
		}
		open.WriteString(indentText(m.Open, out.Indent))
		out.Close = indentText(m.Close, out.Indent) + out.Close
		out.Filter = out.Filter.Add(m.Filter)
		out.Indent += m.Indent
	}
	if err := out.Filter.Validate(); err != nil {
		return Mapped{}, err
	}
	out.Open = RemoveUnusedHelpers(lb, open.String(), out.Close)
	return out, nil
}
