package codegen

import (
	"fmt"
	"strings"

	"fort2hip/internal/kernel"
)

// Options control the rendering.
type Options struct {
	// FortranStyleTensors must match the option the kernels were built
	// with; C-style kernels get a linearizing index macro per array.
	FortranStyleTensors bool
	// Guard names the include guard; no guard when empty.
	Guard string
}

var hipIncludes = []string{
	`#include "hip/hip_runtime.h"`,
	`#include "gpufort.h"`,
	`#include "gpufort_array.h"`,
	`#include "gpufort_loop.h"`,
}

const reductionInclude = `#include "gpufort_reduction.h"`

// HIP renders a translation unit holding the kernels, their launchers and
// CPU entry points.
func HIP(ctxs []*kernel.Context, opts Options) string {
	w := &writer{}
	if opts.Guard != "" {
		w.writeLine("#ifndef %s", opts.Guard)
		w.writeLine("#define %s", opts.Guard)
	}
	for _, inc := range hipIncludes {
		w.writeLine("%s", inc)
	}
	for _, c := range ctxs {
		if len(c.GlobalReducedVars) > 0 {
			w.writeLine("%s", reductionInclude)
			break
		}
	}
	for _, c := range ctxs {
		w.writeLine("")
		writeKernel(w, c, opts)
	}
	if opts.Guard != "" {
		w.writeLine("")
		w.writeLine("#endif // %s", opts.Guard)
	}
	return w.String()
}

// cType is the element type; unknown types are left to the compiler.
func cType(v kernel.Var) string {
	if v.CType == "" {
		return "auto /* unknown type */"
	}
	return v.CType
}

func argDecl(v kernel.Var) string {
	if v.Rank > 0 {
		return fmt.Sprintf("gpufort::array%d<%s> %s", v.Rank, cType(v), v.Name)
	}
	return cType(v) + " " + v.Name
}

func reducedArgDecl(v kernel.Var) string {
	return fmt.Sprintf("gpufort::array1<%s> %s", cType(v), v.Name)
}

func kernelArgs(c *kernel.Context) []string {
	var out []string
	for _, v := range c.GlobalVars {
		out = append(out, argDecl(v))
	}
	for _, v := range c.GlobalReducedVars {
		out = append(out, reducedArgDecl(v))
	}
	return out
}

func localDecl(v kernel.Var) string {
	switch {
	case v.Value != "":
		return fmt.Sprintf("const %s %s = %s;", cType(v), v.Name, v.Value)
	case v.Rank > 0:
		return fmt.Sprintf("%s %s[%s];", cType(v), v.Name, extents(v.Bounds))
	}
	return fmt.Sprintf("%s %s;", cType(v), v.Name)
}

// extents turns Fortran bounds into a C element count.
func extents(bounds []string) string {
	parts := make([]string, 0, len(bounds))
	for _, b := range bounds {
		lo, hi, ok := strings.Cut(b, ":")
		if !ok {
			parts = append(parts, "("+strings.TrimSpace(b)+")")
			continue
		}
		parts = append(parts, fmt.Sprintf("((%s)-(%s)+1)", strings.TrimSpace(hi), strings.TrimSpace(lo)))
	}
	return strings.Join(parts, "*")
}

func arrays(c *kernel.Context) []kernel.Var {
	var out []kernel.Var
	for _, v := range c.GlobalVars {
		if v.Rank > 0 {
			out = append(out, v)
		}
	}
	return out
}

func writeKernel(w *writer, c *kernel.Context, opts Options) {
	w.writeLine("// BEGIN %s %s", c.Name, c.Hash)
	if !opts.FortranStyleTensors {
		for _, v := range arrays(c) {
			w.writeLine("#define _idx_%s(...) %s.linearized_index(__VA_ARGS__)", v.Name, v.Name)
		}
	}
	head := "__global__ void"
	if c.LaunchBounds != "" && c.Kind != kernel.KindDevice {
		head += " __launch_bounds__(" + c.LaunchBounds + ")"
	}
	if c.Kind == kernel.KindDevice {
		ret := "void"
		if c.ResultVar != "" && c.ResultType != "" {
			ret = c.ResultType
		}
		head = "__device__ " + ret
	}
	args := kernelArgs(c)
	if len(args) == 0 {
		w.writeLine("%s %s() {", head, c.Name)
	} else {
		w.writeLine("%s %s(", head, c.Name)
		w.writeList(args, ") {")
	}
	w.push()
	for _, v := range c.SharedVars {
		w.writeLine("__shared__ %s", localDecl(v))
	}
	for _, v := range c.LocalVars {
		w.writeLine("%s", localDecl(v))
	}
	if c.ResultVar != "" && c.ResultType != "" {
		w.writeLine("%s %s;", c.ResultType, c.ResultVar)
	}
	w.writeBlock(c.CBody)
	w.pop()
	w.writeLine("}")
	if !opts.FortranStyleTensors {
		for _, v := range arrays(c) {
			w.writeLine("#undef _idx_%s", v.Name)
		}
	}
	for _, l := range c.Launchers {
		w.writeLine("")
		switch l.Kind {
		case "hip":
			writeHIPLauncher(w, c, l, false)
		case "hip_ps":
			writeHIPLauncher(w, c, l, true)
		case "cpu":
			writeCPULauncher(w, c, l)
		}
	}
	w.writeLine("// END %s %s", c.Name, c.Hash)
}

func launcherArgs(c *kernel.Context, withGrid bool) []string {
	var out []string
	if withGrid {
		out = append(out, "dim3& grid", "dim3& block")
	}
	out = append(out, "const int sharedmem", "hipStream_t stream", "const bool async")
	for _, v := range c.GlobalVars {
		out = append(out, argDecl(v))
	}
	for _, v := range c.GlobalReducedVars {
		out = append(out, cType(v)+"* "+v.Name)
	}
	return out
}

func dim3(dims []string) string {
	if len(dims) == 0 {
		return "1"
	}
	return strings.Join(dims, ",")
}

func writeHIPLauncher(w *writer, c *kernel.Context, l kernel.Launcher, fromProblemSize bool) {
	w.writeLine(`extern "C" hipError_t %s(`, l.Name)
	w.writeList(launcherArgs(c, !fromProblemSize), ") {")
	w.push()
	if fromProblemSize {
		w.writeLine("dim3 block(%s);", dim3(c.Block))
		w.writeLine("dim3 grid(%s);", dim3(c.Grid))
	}
	call := []string{"(" + c.Name + ")", "grid", "block", "sharedmem", "stream"}
	for _, v := range c.GlobalVars {
		call = append(call, v.Name)
	}
	if len(c.GlobalReducedVars) > 0 {
		w.writeLine("const int _num_lanes = grid.x*grid.y*grid.z*block.x*block.y*block.z;")
	}
	for _, v := range c.GlobalReducedVars {
		w.writeLine("gpufort::array1<%s> _%s_buf = gpufort::reduction_buffer<%s>(_num_lanes, stream);", cType(v), v.Name, cType(v))
		call = append(call, "_"+v.Name+"_buf")
	}
	w.writeLine("hipLaunchKernelGGL(%s);", strings.Join(call, ", "))
	for _, v := range c.GlobalReducedVars {
		w.writeLine("gpufort::reduce<%s, reduce_op_%s>(_%s_buf, _num_lanes, %s, stream);", cType(v), v.Op, v.Name, v.Name)
	}
	w.writeLine("hipError_t ierr = hipGetLastError();")
	w.writeLine("if ( ierr == hipSuccess && !async ) {")
	w.push()
	w.writeLine("ierr = hipStreamSynchronize(stream);")
	w.pop()
	w.writeLine("}")
	w.writeLine("return ierr;")
	w.pop()
	w.writeLine("}")
}

// writeCPULauncher forwards to the serial Fortran routine.
func writeCPULauncher(w *writer, c *kernel.Context, l kernel.Launcher) {
	var args, call []string
	for _, v := range c.Args() {
		if v.Rank > 0 {
			args = append(args, argDecl(v))
			call = append(call, v.Name+".data.data_host")
			continue
		}
		args = append(args, cType(v)+"* "+v.Name)
		call = append(call, v.Name)
	}
	w.writeLine(`extern "C" void %s(%s);`, cpuRoutine(c), strings.Join(pointerParams(c), ", "))
	if len(args) == 0 {
		w.writeLine(`extern "C" void %s() {`, l.Name)
	} else {
		w.writeLine(`extern "C" void %s(`, l.Name)
		w.writeList(args, ") {")
	}
	w.push()
	w.writeLine("%s(%s);", cpuRoutine(c), strings.Join(call, ", "))
	w.pop()
	w.writeLine("}")
}

func pointerParams(c *kernel.Context) []string {
	var out []string
	for _, v := range c.Args() {
		out = append(out, cType(v)+"*")
	}
	return out
}

func cpuRoutine(c *kernel.Context) string { return c.Name + "_cpu" }
