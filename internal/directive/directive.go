// Package directive parses OpenACC ("!$acc") and CUDA Fortran
// ("!$cuf kernel do") directives into clause records.
package directive

import (
	"strconv"
	"strings"

	"fort2hip/internal/diag"
)

// Sentinel identifies the directive family.
type Sentinel uint8

const (
	SentinelACC Sentinel = iota + 1
	SentinelCUF
)

func (s Sentinel) String() string {
	switch s {
	case SentinelACC:
		return "acc"
	case SentinelCUF:
		return "cuf"
	default:
		return "unknown"
	}
}

// Clause is one directive clause with its raw, comma-split arguments.
// For reduction clauses Modifier holds the operator; for gang it holds a
// "num"/"static" prefix when present.
type Clause struct {
	Name     string
	Modifier string
	Args     []string
}

// Directive is a parsed directive line.
type Directive struct {
	Sentinel      Sentinel
	Construct     string   // "parallel loop", "loop", "kernel do", "end parallel", ...
	ConstructArgs []string // "routine(name)", "cache(a,b)", "kernel do(2)"
	Clauses       []Clause
	Grid, Block   string // "<<<grid,block>>>" of cuf kernels, "*" for auto
	Text          string
}

// Reduction is one reduction clause.
type Reduction struct {
	Op   string // add, mult, max, min, and, or, eqv, neqv, iand, ior, ieor
	Vars []string
}

// IsEnd reports "end ..." directives.
func (d *Directive) IsEnd() bool { return strings.HasPrefix(d.Construct, "end ") }

// IsLoop reports directives that annotate the following do loop.
func (d *Directive) IsLoop() bool {
	if d.Sentinel == SentinelCUF {
		return d.Construct == "kernel do"
	}
	return !d.IsEnd() && (d.Construct == "loop" || strings.HasSuffix(d.Construct, " loop"))
}

// IsCompute reports directives that open an offloaded compute construct.
func (d *Directive) IsCompute() bool {
	if d.Sentinel == SentinelCUF {
		return d.Construct == "kernel do"
	}
	switch d.Construct {
	case "parallel", "kernels", "serial", "parallel loop", "kernels loop", "serial loop":
		return true
	}
	return false
}

// IsSerial reports "serial" constructs, which run on one gang.
func (d *Directive) IsSerial() bool { return strings.HasPrefix(d.Construct, "serial") }

// Clause returns the first clause with the given name.
func (d *Directive) Clause(name string) (Clause, bool) {
	for _, c := range d.Clauses {
		if c.Name == name {
			return c, true
		}
	}
	return Clause{}, false
}

func (d *Directive) Has(name string) bool {
	_, ok := d.Clause(name)
	return ok
}

func (d *Directive) Gang() bool   { return d.Has("gang") }
func (d *Directive) Worker() bool { return d.Has("worker") }
func (d *Directive) Vector() bool { return d.Has("vector") }
func (d *Directive) Seq() bool    { return d.Has("seq") }

// Partitioned reports an explicit gang, worker or vector clause.
func (d *Directive) Partitioned() bool { return d.Gang() || d.Worker() || d.Vector() }

// Arg returns the single argument of clause name, "" if absent.
func (d *Directive) Arg(name string) string {
	c, ok := d.Clause(name)
	if !ok || len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func (d *Directive) NumGangs() string     { return d.Arg("num_gangs") }
func (d *Directive) NumWorkers() string   { return d.Arg("num_workers") }
func (d *Directive) VectorLength() string { return d.Arg("vector_length") }

// NumLoops returns how many tightly nested loops the directive maps:
// collapse(n) for OpenACC, do(n) for CUF kernels, the tile count when
// tiling, 1 otherwise.
func (d *Directive) NumLoops() (int, error) {
	raw := ""
	switch {
	case d.Sentinel == SentinelCUF && len(d.ConstructArgs) > 0:
		raw = d.ConstructArgs[0]
	case d.Has("collapse"):
		raw = d.Arg("collapse")
	case d.Has("tile"):
		return len(d.Tile()), nil
	default:
		return 1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, diag.Errorf(diag.KindSyntax, diag.SynBadDirective, "loop count %q is not a positive integer", raw)
	}
	return n, nil
}

// Tile returns the tile sizes, nil when not tiled.
func (d *Directive) Tile() []string {
	c, ok := d.Clause("tile")
	if !ok {
		return nil
	}
	return c.Args
}

// Reductions returns reduction clauses in source order.
func (d *Directive) Reductions() []Reduction {
	var out []Reduction
	for _, c := range d.Clauses {
		if c.Name == "reduction" || c.Name == "reduce" {
			out = append(out, Reduction{Op: c.Modifier, Vars: c.Args})
		}
	}
	return out
}

// Vars returns the variables of all clauses called name.
func (d *Directive) Vars(name string) []string {
	var out []string
	for _, c := range d.Clauses {
		if c.Name == name {
			out = append(out, c.Args...)
		}
	}
	return out
}

// Private returns private and firstprivate variables.
func (d *Directive) Private() []string {
	return append(d.Vars("private"), d.Vars("firstprivate")...)
}

// Merge folds a region directive ("parallel", "kernels") into the loop
// directive that follows it, producing the combined construct.
func Merge(region, loop *Directive) *Directive {
	if region == nil {
		return loop
	}
	out := *loop
	if loop.Construct == "loop" {
		out.Construct = region.Construct + " loop"
	}
	out.Clauses = append(append([]Clause(nil), region.Clauses...), loop.Clauses...)
	out.Text = region.Text + "\n" + loop.Text
	return &out
}

// DeclareMapping maps acc declare clauses to device residency kinds.
func DeclareMapping(clause string) (string, bool) {
	switch clause {
	case "create", "device_resident", "present", "deviceptr", "link":
		return "alloc", true
	case "copyin":
		return "to", true
	case "copyout":
		return "from", true
	case "copy":
		return "tofrom", true
	}
	return "", false
}
