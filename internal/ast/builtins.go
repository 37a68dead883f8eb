package ast

// hipSymbols maps lower-case Fortran and CUDA Fortran symbols to their
// HIP C++ spelling. Member accesses use "." as separator.
var hipSymbols = map[string]string{
	"threadidx.x": "(1+threadIdx.x)",
	"threadidx.y": "(1+threadIdx.y)",
	"threadidx.z": "(1+threadIdx.z)",
	"blockidx.x":  "(1+blockIdx.x)",
	"blockidx.y":  "(1+blockIdx.y)",
	"blockidx.z":  "(1+blockIdx.z)",
	"blockdim.x":  "blockDim.x",
	"blockdim.y":  "blockDim.y",
	"blockdim.z":  "blockDim.z",
	"griddim.x":   "gridDim.x",
	"griddim.y":   "gridDim.y",
	"griddim.z":   "gridDim.z",
	"warpsize":    "warpSize",
	"syncthreads": "__syncthreads",
	"atomicadd":   "atomicAdd",
	"atomicsub":   "atomicSub",
	"atomicmax":   "atomicMax",
	"atomicmin":   "atomicMin",
	"atomicand":   "atomicAnd",
	"atomicor":    "atomicOr",
	"atomicxor":   "atomicXor",
	"atomicexch":  "atomicExch",
	"atomicinc":   "atomicInc",
	"atomicdec":   "atomicDec",
	"atomiccas":   "atomicCas",
	"sign":        "copysign",
}

// builtinRoots are derived-type-like CUDA variables.
var builtinRoots = map[string]bool{
	"threadidx": true,
	"blockidx":  true,
	"blockdim":  true,
	"griddim":   true,
}

// intrinsics are Fortran intrinsic functions passed through by name.
var intrinsics = map[string]bool{
	"abs": true, "sqrt": true, "exp": true, "log": true, "log10": true,
	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true, "atan": true, "atan2": true,
	"sinh": true, "cosh": true, "tanh": true, "min": true, "max": true, "mod": true,
	"floor": true, "ceiling": true, "sign": true, "int": true, "real": true, "dble": true,
	"nint": true, "present": true, "size": true, "lbound": true, "ubound": true,
}

// casts map conversion intrinsics to C types.
var casts = map[string]string{
	"int":  "int",
	"real": "float",
	"dble": "double",
}

// IsBuiltin reports symbols that are not user variables: CUDA builtins and
// Fortran intrinsics.
func IsBuiltin(name string) bool {
	if _, ok := hipSymbols[name]; ok {
		return true
	}
	return builtinRoots[name] || intrinsics[name]
}
