// Package kernel turns annotated loop nests and CUDA Fortran device
// procedures into render-ready kernel descriptions.
package kernel

// Kind tells how a kernel is entered.
type Kind uint8

const (
	KindLoopNest Kind = iota + 1 // offloaded loop nest with launchers
	KindGlobal                   // attributes(global) procedure
	KindDevice                   // device procedure or acc routine
)

func (k Kind) String() string {
	switch k {
	case KindLoopNest:
		return "loopnest"
	case KindGlobal:
		return "global"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Var is a classified variable of a kernel.
type Var struct {
	Name       string
	FType      string
	Kind       string
	CType      string // empty when the type is unknown
	Rank       int
	Bounds     []string
	Bytes      int
	Qualifiers []string
	Op         string // reduction operator of reduced variables
	Value      string // HIP initializer of named constants
}

// Launcher is one host entry point of a kernel.
type Launcher struct {
	Kind string // hip, hip_ps or cpu
	Name string
}

// Context is everything a renderer needs for one kernel. It holds no
// behavior and no references into the AST.
type Context struct {
	Name         string
	Kind         Kind
	Hash         string
	LaunchBounds string

	GlobalVars        []Var
	GlobalReducedVars []Var
	SharedVars        []Var
	LocalVars         []Var

	CBody      string
	FBody      string
	ResultVar  string // function result of device functions
	ResultType string

	ProblemSize []string // innermost dimension first
	Block       []string
	Grid        []string
	Launchers   []Launcher
	CPU         bool

	File string
	Line int
}

// Args returns the kernel arguments in call order.
func (c *Context) Args() []Var {
	out := make([]Var, 0, len(c.GlobalVars)+len(c.GlobalReducedVars))
	out = append(out, c.GlobalVars...)
	return append(out, c.GlobalReducedVars...)
}

// Launcher returns the launcher of the given kind.
func (c *Context) Launcher(kind string) (Launcher, bool) {
	for _, l := range c.Launchers {
		if l.Kind == kind {
			return l, true
		}
	}
	return Launcher{}, false
}

func launchers(name string, kinds ...string) []Launcher {
	out := make([]Launcher, 0, len(kinds))
	for _, k := range kinds {
		l := Launcher{Kind: k, Name: "launch_" + name}
		switch k {
		case "hip_ps":
			l.Name += "_ps"
		case "cpu":
			l.Name += "_cpu"
		}
		out = append(out, l)
	}
	return out
}
