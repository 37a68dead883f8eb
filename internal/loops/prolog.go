package loops

import (
	"fmt"
	"strings"
)

// KernelProlog declares the kernel-wide acc_grid and the coordinates of
// the executing thread. An empty vectorLength means one warp.
func KernelProlog(vectorLength string) string {
	if vectorLength == "" {
		vectorLength = "warpSize"
	}
	return fmt.Sprintf("const gpufort::acc_grid %s(gridDim.x,gpufort::div_round_up(blockDim.x,warpSize),%s);\n", kernelGrid, vectorLength) +
		fmt.Sprintf("const gpufort::acc_coords %s(blockIdx.x,threadIdx.x/warpSize,threadIdx.x%%warpSize);\n", DefaultCoords)
}

// Reduction names the reduced variables of one operator.
type Reduction struct {
	Op   string
	Vars []string
}

// ReductionPreamble initializes each thread's slot of the reduction
// buffers with the neutral element of its operator.
func ReductionPreamble(reductions []Reduction, laneIndex string, fortranStyle bool) string {
	var b strings.Builder
	for _, r := range reductions {
		for _, v := range r.Vars {
			slot := v + "[" + laneIndex + "]"
			if fortranStyle {
				slot = v + "(" + laneIndex + ")"
			}
			fmt.Fprintf(&b, "reduce_op_%s::init(%s);\n", r.Op, slot)
		}
	}
	return b.String()
}

// DecodeIndex peels the outermost index off a collapsed index: it
// narrows denom by length, updates rem and returns first+idx*step. It
// mirrors gpufort::outermost_index on the host and takes its arguments
// in the same order, so emitted index recovery can be evaluated in Go.
func DecodeIndex(rem, denom *int, first, length, step int) int {
	*denom /= length
	idx := *rem / *denom
	*rem %= *denom
	return first + idx*step
}
