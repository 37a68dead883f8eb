package loops

import (
	"fmt"
	"strings"

	"fort2hip/internal/diag"
)

const indentUnit = "  "

// kernelGrid is the acc_grid declared by KernelProlog.
const kernelGrid = "_res"

// GridDim selects the HIP grid dimension a loop is mapped to.
type GridDim uint8

const (
	GridNone GridDim = iota
	GridX
	GridY
	GridZ
)

func (d GridDim) String() string {
	switch d {
	case GridX:
		return "x"
	case GridY:
		return "y"
	case GridZ:
		return "z"
	default:
		return ""
	}
}

// GridDims lists the mappable dimensions, innermost first.
var GridDims = []GridDim{GridX, GridY, GridZ}

type boundKind uint8

const (
	boundLast boundKind = iota + 1
	boundLength
	boundExclUbound
)

// Loop describes one loop of a nest by C++ expression strings. Exactly
// one of the last index, the trip count or the exclusive upper bound is
// stored; the constructors pick which.
type Loop struct {
	Index string
	First string
	Step  string // empty for unit stride

	bound     string
	boundKind boundKind

	Gang, Worker, Vector               bool
	NumGangs, NumWorkers, VectorLength string
	Grid                               GridDim

	// Prolog is emitted before the loop head. BodyProlog and BodyEpilog
	// wrap the body; "$idx$" in them stands for the loop index.
	Prolog          string
	BodyProlog      string
	BodyEpilog      string
	BodyExtraIndent string
}

// ByLast builds a loop running from first to last inclusive.
func ByLast(index, first, last, step string) *Loop {
	return newLoop(index, first, step, last, boundLast)
}

// ByLength builds a loop with a known trip count.
func ByLength(index, first, length, step string) *Loop {
	return newLoop(index, first, step, length, boundLength)
}

// ByExclUbound builds a loop bounded by an exclusive upper bound.
func ByExclUbound(index, first, excl, step string) *Loop {
	return newLoop(index, first, step, excl, boundExclUbound)
}

func newLoop(index, first, step, bound string, kind boundKind) *Loop {
	return &Loop{
		Index:     strings.TrimSpace(index),
		First:     strings.TrimSpace(first),
		Step:      strings.TrimSpace(step),
		bound:     strings.TrimSpace(bound),
		boundKind: kind,
	}
}

func (l *Loop) directivePartitioned() bool {
	return l.Gang || l.Worker || l.Vector
}

// Validate checks that the loop is well defined.
func (l *Loop) Validate() error {
	if l.Index == "" || l.First == "" || l.bound == "" || l.boundKind == 0 {
		return diag.Errorf(diag.KindSyntax, diag.LoopBadBounds,
			"loop %q lacks an index, a first index or a bound", l.Index)
	}
	if l.Grid != GridNone && l.directivePartitioned() {
		return diag.Errorf(diag.KindMixedPartitioning, diag.LoopMixedPartitioning,
			"loop %s is mapped to grid dimension %s and gang/worker/vector partitioned", l.Index, l.Grid)
	}
	return nil
}

func (l *Loop) unitStep() bool {
	return l.Step == "" || l.Step == "1"
}

// Last returns the inclusive last index.
func (l *Loop) Last() string {
	switch l.boundKind {
	case boundLast:
		return l.bound
	case boundExclUbound:
		return fmt.Sprintf("(%s - 1)", l.bound)
	default:
		return fmt.Sprintf("(%s + %s - 1)", l.First, l.bound)
	}
}

// ExclUbound returns the exclusive upper bound.
func (l *Loop) ExclUbound() string {
	switch l.boundKind {
	case boundExclUbound:
		return l.bound
	case boundLast:
		return fmt.Sprintf("(%s + 1)", l.bound)
	}
	stride := ""
	if !l.unitStep() {
		stride = "(" + l.Step + ")*"
	}
	if l.First == "0" {
		return stride + l.bound
	}
	return fmt.Sprintf("(%s + %s%s)", l.First, stride, l.bound)
}

// Length returns the trip count.
func (l *Loop) Length() string {
	if l.boundKind == boundLength {
		return l.bound
	}
	if l.Step == "" {
		return fmt.Sprintf("gpufort::loop_len(%s,%s)", l.First, l.Last())
	}
	return fmt.Sprintf("gpufort::loop_len(%s,%s,%s)", l.First, l.Last(), l.Step)
}

// Normalized reports a loop starting at zero with unit stride.
func (l *Loop) Normalized() bool {
	return l.First == "0" && l.unitStep()
}

// IndexRecovery computes the original index from a normalized one.
func (l *Loop) IndexRecovery(normalized string) string {
	var b strings.Builder
	if l.First != "0" {
		b.WriteString(l.First + " + ")
	}
	if l.Step != "" {
		fmt.Fprintf(&b, "(%s)*%s", l.Step, normalized)
	} else {
		b.WriteString(normalized)
	}
	return b.String()
}

func intDecl(name, rhs string) string {
	if rhs == "" {
		return "int " + name + ";\n"
	}
	return "int " + name + " = " + rhs + ";\n"
}

func constIntDecl(name, rhs string) string {
	return "const int " + name + " = " + rhs + ";\n"
}

func forOpen(index, first, excl, step string) string {
	if step == "" {
		return fmt.Sprintf("for (%s = %s; %s < %s; %s++) {\n", index, first, index, excl, index)
	}
	return fmt.Sprintf("for (%s = %s; %s < %s; %s += %s) {\n", index, first, index, excl, index, step)
}

// indentText prefixes every non-blank line of s.
func indentText(s, prefix string) string {
	if prefix == "" || s == "" {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}
	return b.String()
}

// Tile splits l into a loop over tiles and a loop over the elements of
// one tile. With an empty tileIndex a tile index variable is declared.
// The element loop restores the original index and guards the remainder
// of the last tile.
func (l *Loop) Tile(lb *Labeler, tileSize, tileIndex string) (tile, elem *Loop) {
	lenVar := lb.Unique("len")
	prolog := constIntDecl(lenVar, l.Length())
	numTiles := lb.Unique("num_tiles")
	prolog += constIntDecl(numTiles, fmt.Sprintf("gpufort::div_round_up(%s,%s)", lenVar, tileSize))
	if tileIndex == "" {
		tileIndex = lb.Unique("tile")
		prolog += intDecl(tileIndex, "")
	}
	tile = ByLength(tileIndex, "0", numTiles, "")
	tile.Gang = l.Gang
	tile.NumGangs = l.NumGangs
	tile.VectorLength = l.VectorLength
	if l.Vector {
		tile.Worker = l.Worker
		tile.NumWorkers = l.NumWorkers
	}
	tile.Prolog = prolog

	elemVar := lb.Unique("elem")
	idxVar := lb.Unique("idx")
	elem = ByLength(elemVar, "0", tileSize, "")
	elem.Vector = l.Vector
	elem.NumGangs = l.NumGangs
	elem.VectorLength = l.VectorLength
	if !l.Vector {
		elem.Worker = l.Worker
		elem.NumWorkers = l.NumWorkers
	}
	elem.Prolog = intDecl(elemVar, "")
	elem.BodyProlog = constIntDecl(idxVar, fmt.Sprintf("%s + (%s)*%s", elemVar, tileSize, tileIndex)) +
		fmt.Sprintf("if ( %s < %s ) {\n", idxVar, lenVar) +
		indentUnit + l.Index + " = " + l.IndexRecovery(idxVar) + ";\n"
	elem.BodyEpilog = "}\n"
	elem.BodyExtraIndent = indentUnit
	return tile, elem
}

// Mapped is the HIP rendering of a loop or nest: the text before and
// after the body, the resources the body runs under and the indentation
// of the body.
type Mapped struct {
	Open   string
	Close  string
	Filter ResourceFilter
	Indent string
}

// accResources opens the resource block of a directive-partitioned loop.
func (l *Loop) accResources(localRes string) (open, close string, filter ResourceFilter) {
	vectorLength, numWorkers := "1", "1"
	if l.Vector {
		vectorLength = "gpufort::acc_resource_all"
		filter.VectorLength = []string{Wildcard}
		if l.VectorLength != "" {
			vectorLength = l.VectorLength
			filter.VectorLength = []string{localRes + ".vector_lanes"}
		}
	}
	if l.Worker {
		numWorkers = "gpufort::acc_resource_all"
		filter.NumWorkers = []string{Wildcard}
		if l.NumWorkers != "" {
			numWorkers = l.NumWorkers
			filter.NumWorkers = []string{localRes + ".workers"}
		}
	}
	numGangs := "gpufort::acc_resource_all"
	filter.NumGangs = []string{Wildcard}
	if l.Gang && l.NumGangs != "" {
		numGangs = l.NumGangs
		filter.NumGangs = []string{localRes + ".gangs"}
	}
	open = fmt.Sprintf("const gpufort::acc_grid %s(%s,%s,%s);\nif ( %s ) {\n",
		localRes, numGangs, numWorkers, vectorLength, filter.LoopEntryCondition())
	close = "} // " + localRes + "\n"
	return open, close, filter
}

// MapToHIP renders l for a HIP device. Grid-mapped loops are spread over
// blocks and threads of their grid dimension; gang, worker and vector
// partitioned loops over the resources of the kernel's acc_grid.
func (l *Loop) MapToHIP(lb *Labeler) (Mapped, error) {
	if err := l.Validate(); err != nil {
		return Mapped{}, err
	}
	var open, close, indent string
	var filter ResourceFilter
	vector := l.Grid != GridNone || l.Vector
	if vector || l.Worker || l.Gang {
		acc := l.Grid == GridNone
		var accClose, localRes string
		if acc {
			localRes = lb.Unique("local_res")
			var accOpen string
			accOpen, accClose, filter = l.accResources(localRes)
			open += accOpen
			indent += indentUnit
		}
		open += indentText(l.Prolog, indent)
		lenVar := lb.Unique("len")
		tileVar := lb.Unique("worker_tile_size")
		var numTiles, workerID string
		if acc {
			numTiles = localRes + ".total_num_workers()"
			workerID = lb.Unique("worker_id")
		} else {
			numTiles = "gridDim." + l.Grid.String()
			workerID = "blockIdx." + l.Grid.String()
		}
		head := constIntDecl(lenVar, l.Length()) +
			constIntDecl(tileVar, fmt.Sprintf("gpufort::div_round_up(%s,%s)", lenVar, numTiles))
		if acc {
			head += constIntDecl(workerID, fmt.Sprintf("%s.worker_id(%s)", DefaultCoords, localRes))
		}
		open += indentText(head, indent)
		if vector {
			idx, decl := l.Index, ""
			if !l.Normalized() {
				idx = lb.Unique("idx")
				decl = intDecl(idx, "")
			}
			var first, stride string
			if acc {
				first = fmt.Sprintf("%s.vector_lane + %s*%s", DefaultCoords, workerID, tileVar)
				stride = localRes + ".vector_lanes"
			} else {
				d := l.Grid.String()
				first = fmt.Sprintf("threadIdx.%s + blockIdx.%s*%s", d, d, tileVar)
				stride = "blockDim." + d
			}
			exclVar := lb.Unique("excl_ubound")
			open += indentText(
				decl+constIntDecl(exclVar, fmt.Sprintf("min(%s,(%s+1)*%s)", lenVar, workerID, tileVar))+
					forOpen(idx, first, exclVar, stride),
				indent)
			close = indent + "} // " + idx + "\n" + close
			indent += indentUnit
			if !l.Normalized() {
				open += indent + l.Index + " = " + l.IndexRecovery(idx) + ";\n"
			}
		} else {
			tile, elem := l.Tile(lb, tileVar, workerID)
			open += indentText(tile.Prolog+elem.Prolog+forOpen(elem.Index, elem.First, elem.ExclUbound(), elem.Step), indent)
			close = indent + "} // " + elem.Index + "\n" + close
			indent += indentUnit
			open += indentText(strings.ReplaceAll(elem.BodyProlog, "$idx$", workerID), indent)
			close = indentText(strings.ReplaceAll(elem.BodyEpilog, "$idx$", workerID), indent) + close
			indent += elem.BodyExtraIndent
		}
		if acc {
			close += accClose
		}
	} else {
		open += l.Prolog + forOpen(l.Index, l.First, l.ExclUbound(), l.Step)
		close = "} // " + l.Index + "\n"
		indent += indentUnit
	}
	open += indentText(strings.ReplaceAll(l.BodyProlog, "$idx$", l.Index), indent)
	close = indentText(strings.ReplaceAll(l.BodyEpilog, "$idx$", l.Index), indent) + close
	return Mapped{Open: open, Close: close, Filter: filter, Indent: indent + l.BodyExtraIndent}, nil
}
