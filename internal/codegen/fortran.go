package codegen

import (
	"regexp"
	"strings"

	"fort2hip/internal/kernel"
)

// Fortran renders a module with the bind(c) interfaces of the HIP
// launchers and the serial CPU routines the cpu launchers call.
func Fortran(module string, ctxs []*kernel.Context) string {
	w := &writer{}
	w.writeLine("module %s", module)
	w.push()
	w.writeLine("use iso_c_binding")
	w.writeLine("use gpufort_array")
	w.writeLine("implicit none")
	var ifaces []*kernel.Context
	for _, c := range ctxs {
		if len(c.Launchers) > 0 {
			ifaces = append(ifaces, c)
		}
	}
	if len(ifaces) > 0 {
		w.writeLine("interface")
		w.push()
		for _, c := range ifaces {
			for _, l := range c.Launchers {
				if l.Kind == "cpu" {
					continue
				}
				writeInterface(w, c, l)
			}
		}
		w.pop()
		w.writeLine("end interface")
	}
	var cpu []*kernel.Context
	for _, c := range ctxs {
		if c.CPU {
			cpu = append(cpu, c)
		}
	}
	if len(cpu) > 0 {
		w.pop()
		w.writeLine("contains")
		w.push()
		for i, c := range cpu {
			if i > 0 {
				w.writeLine("")
			}
			writeCPURoutine(w, c)
		}
	}
	w.pop()
	w.writeLine("end module %s", module)
	return w.String()
}

var cLiteral = regexp.MustCompile(`^([-+]?[0-9][0-9.]*(?:[eE][-+]?[0-9]+)?)(?:f|L|LL)$`)

func fType(v kernel.Var) string {
	t := v.FType
	if t == "" {
		t = "integer"
	}
	if t == "type" {
		return "type(" + v.Kind + ")"
	}
	if v.Kind != "" {
		t += "(" + v.Kind + ")"
	}
	return t
}

func names(vars []kernel.Var) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

func writeInterface(w *writer, c *kernel.Context, l kernel.Launcher) {
	params := []string{"sharedmem", "stream", "async"}
	if l.Kind == "hip" {
		params = append([]string{"grid", "block"}, params...)
	}
	params = append(params, names(c.Args())...)
	w.writeLine(`function %s(%s) bind(c, name="%s") result(ierr)`, l.Name, strings.Join(params, ", "), l.Name)
	w.push()
	w.writeLine("import")
	if l.Kind == "hip" {
		w.writeLine("type(dim3), intent(inout) :: grid, block")
	}
	w.writeLine("integer(c_int), value, intent(in) :: sharedmem")
	w.writeLine("type(c_ptr), value, intent(in) :: stream")
	w.writeLine("logical(c_bool), value, intent(in) :: async")
	for _, v := range c.GlobalVars {
		if v.Rank > 0 {
			w.writeLine("type(gpufort_array%d), intent(in) :: %s", v.Rank, v.Name)
			continue
		}
		w.writeLine("%s, value, intent(in) :: %s", fType(v), v.Name)
	}
	for _, v := range c.GlobalReducedVars {
		w.writeLine("%s, intent(inout) :: %s", fType(v), v.Name)
	}
	w.writeLine("integer(kind(hipSuccess)) :: ierr")
	w.pop()
	w.writeLine("end function")
}

func fDecl(v kernel.Var, intent string) string {
	decl := fType(v)
	if intent != "" {
		decl += ", intent(" + intent + ")"
	}
	if v.Value != "" {
		decl += ", parameter"
	}
	decl += " :: " + v.Name
	if v.Rank > 0 {
		decl += "(" + strings.Join(v.Bounds, ",") + ")"
	}
	return decl
}

func writeCPURoutine(w *writer, c *kernel.Context) {
	args := c.Args()
	w.writeLine(`subroutine %s(%s) bind(c, name="%s")`, cpuRoutine(c), strings.Join(names(args), ", "), cpuRoutine(c))
	w.push()
	// scalars first so array bounds can refer to them
	for _, v := range args {
		if v.Rank == 0 {
			w.writeLine("%s", fDecl(v, "inout"))
		}
	}
	for _, v := range args {
		if v.Rank > 0 {
			w.writeLine("%s", fDecl(v, "inout"))
		}
	}
	for _, v := range append(append([]kernel.Var{}, c.SharedVars...), c.LocalVars...) {
		d := fDecl(v, "")
		if v.Value != "" {
			d += " = " + fortranValue(v)
		}
		w.writeLine("%s", d)
	}
	w.writeBlock(c.FBody)
	w.pop()
	w.writeLine("end subroutine %s", cpuRoutine(c))
}

// fortranValue strips the C literal suffix of numeric constants.
func fortranValue(v kernel.Var) string {
	m := cLiteral.FindStringSubmatch(v.Value)
	if m == nil {
		return v.Value
	}
	return m[1]
}
