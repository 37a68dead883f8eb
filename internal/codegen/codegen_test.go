package codegen

import (
	"strings"
	"testing"

	"fort2hip/internal/kernel"
)

func saxpyContext() *kernel.Context {
	return &kernel.Context{
		Name:         "main_10",
		Kind:         kernel.KindLoopNest,
		Hash:         "0123456789abcdef",
		LaunchBounds: "128",
		GlobalVars: []kernel.Var{
			{Name: "n", FType: "integer", CType: "int"},
			{Name: "x", FType: "real", Kind: "4", CType: "float", Rank: 1, Bounds: []string{"n"}},
		},
		GlobalReducedVars: []kernel.Var{
			{Name: "s", FType: "real", Kind: "4", CType: "float", Op: "add"},
		},
		LocalVars: []kernel.Var{
			{Name: "i", FType: "integer", CType: "int"},
			{Name: "w", FType: "integer", CType: "int", Rank: 1, Bounds: []string{"0:3"}},
			{Name: "a", FType: "real", Kind: "4", CType: "float", Value: "2.0f"},
		},
		CBody:       "i = 1;\ns += x(i);\n",
		FBody:       "do i = 1, n\n  s = s + x(i)\nend do\n",
		ProblemSize: []string{"n"},
		Block:       []string{"128", "1"},
		Grid:        []string{"gpufort::div_round_up(n,128)", "1"},
		Launchers: []kernel.Launcher{
			{Kind: "hip", Name: "launch_main_10"},
			{Kind: "hip_ps", Name: "launch_main_10_ps"},
			{Kind: "cpu", Name: "launch_main_10_cpu"},
		},
		CPU: true,
	}
}

func TestHIPKernel(t *testing.T) {
	out := HIP([]*kernel.Context{saxpyContext()}, Options{FortranStyleTensors: true, Guard: "MAIN_KERNELS_H"})
	wants := []string{
		"#ifndef MAIN_KERNELS_H\n",
		`#include "gpufort_reduction.h"`,
		"// BEGIN main_10 0123456789abcdef\n",
		"__global__ void __launch_bounds__(128) main_10(\n  int n,\n  gpufort::array1<float> x,\n  gpufort::array1<float> s) {\n",
		"  int i;\n  int w[((3)-(0)+1)];\n  const float a = 2.0f;\n  i = 1;\n  s += x(i);\n}\n",
		`extern "C" hipError_t launch_main_10(` + "\n  dim3& grid,\n",
		"  float* s) {\n",
		"hipLaunchKernelGGL((main_10), grid, block, sharedmem, stream, n, x, _s_buf);",
		"gpufort::reduce<float, reduce_op_add>(_s_buf, _num_lanes, s, stream);",
		`extern "C" hipError_t launch_main_10_ps(` + "\n  const int sharedmem,\n",
		"  dim3 block(128,1);\n  dim3 grid(gpufort::div_round_up(n,128),1);\n",
		`extern "C" void main_10_cpu(int*, float*, float*);`,
		"  main_10_cpu(n, x.data.data_host, s);\n",
		"// END main_10 0123456789abcdef\n",
		"#endif // MAIN_KERNELS_H\n",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "#define _idx_") {
		t.Errorf("fortran-style tensors must not define index macros")
	}
	begin := strings.Index(out, "// BEGIN")
	end := strings.Index(out, "// END")
	if begin < 0 || end < begin {
		t.Fatalf("markers out of order")
	}
}

func TestHIPCStyleIndexMacros(t *testing.T) {
	c := saxpyContext()
	c.GlobalReducedVars = nil
	out := HIP([]*kernel.Context{c}, Options{})
	if !strings.Contains(out, "#define _idx_x(...) x.linearized_index(__VA_ARGS__)\n") {
		t.Errorf("missing index macro\n%s", out)
	}
	if !strings.Contains(out, "#undef _idx_x\n") {
		t.Errorf("missing undef\n%s", out)
	}
	if strings.Contains(out, "_idx_n") {
		t.Errorf("scalars get no index macro")
	}
	if strings.Contains(out, "gpufort_reduction.h") {
		t.Errorf("reduction header without reductions")
	}
}

func TestDeviceFunction(t *testing.T) {
	c := &kernel.Context{
		Name:       "twice",
		Kind:       kernel.KindDevice,
		Hash:       "ffffffffffffffff",
		GlobalVars: []kernel.Var{{Name: "v", CType: "float"}},
		ResultVar:  "r",
		ResultType: "float",
		CBody:      "r = 2*v;\nreturn r;\n",
	}
	out := HIP([]*kernel.Context{c}, Options{})
	want := "__device__ float twice(\n  float v) {\n  float r;\n  r = 2*v;\n  return r;\n}\n"
	if !strings.Contains(out, want) {
		t.Errorf("got\n%s\nwant substring\n%s", out, want)
	}
	if strings.Contains(out, "launch_twice") {
		t.Errorf("device functions have no launchers")
	}
}

func TestFortranModule(t *testing.T) {
	out := Fortran("main_kernels", []*kernel.Context{saxpyContext()})
	wants := []string{
		"module main_kernels\n",
		"  use iso_c_binding\n",
		`    function launch_main_10(grid, block, sharedmem, stream, async, n, x, s) bind(c, name="launch_main_10") result(ierr)`,
		`    function launch_main_10_ps(sharedmem, stream, async, n, x, s) bind(c, name="launch_main_10_ps") result(ierr)`,
		"      type(gpufort_array1), intent(in) :: x\n",
		"      integer, value, intent(in) :: n\n",
		"      real(4), intent(inout) :: s\n",
		"contains\n",
		`  subroutine main_10_cpu(n, x, s) bind(c, name="main_10_cpu")`,
		"    integer, intent(inout) :: n\n    real(4), intent(inout) :: s\n    real(4), intent(inout) :: x(n)\n",
		"    integer :: w(0:3)\n",
		"    real(4), parameter :: a = 2.0\n",
		"    do i = 1, n\n      s = s + x(i)\n    end do\n",
		"  end subroutine main_10_cpu\n",
		"end module main_kernels\n",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "launch_main_10_cpu(") {
		t.Errorf("cpu launcher needs no interface")
	}
}

func TestFortranValue(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2.0f", "2.0"},
		{"10L", "10"},
		{"3LL", "3"},
		{"1.5e-3f", "1.5e-3"},
		{"nf", "nf"},
		{"(n+1)", "(n+1)"},
	}
	for _, tt := range tests {
		if got := fortranValue(kernel.Var{Value: tt.in}); got != tt.want {
			t.Errorf("fortranValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
