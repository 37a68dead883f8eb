package fuzztests

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const maxSeedBytes = 64 << 10

var fortranSeeds = []string{
	"program p\n  integer :: i\n  do i = 1, 10\n  end do\nend program p\n",
	"module m\n  real(8), allocatable, device :: a(:,:)\ncontains\n  attributes(global) subroutine k(n)\n    integer, value :: n\n  end subroutine\nend module m\n",
	"subroutine s(a, n)\n  use m, only: b => a\n  integer n\n  real a(n)\n!$acc parallel loop reduction(+:t) &\n!$acc& gang vector\n  do i = 1, n; a(i) = a(i) * 2.0; end do\nend subroutine\n",
	"!$cuf kernel do(2) <<<*, *>>>\ndo j = 1, m\n  do i = 1, n\n    c(i,j) = a(i,j) + b(i,j)\n  end do\nend do\n",
	"x = merge(1.0e-3_8, -.5d0, a .and. .not. b) ** 2 // 'str''ing'\n",
	"type t\n  integer :: i = 1\nend type\n",
}

var exprSeeds = []string{
	"a(i,j) + b(i) * 2.0d0",
	"-x ** 2 ** 3",
	"(a .eqv. b) .neqv. .true.",
	"t%arr(i)%v(1:n:2)",
	"min(1, max(2_8, n))",
	"'quoted'' string'",
}

var directiveSeeds = []string{
	"!$acc parallel loop gang vector collapse(2) reduction(max:m) private(t)",
	"!$acc kernels loop tile(16,*) num_gangs(n) vector_length(128)",
	"!$acc end parallel",
	"!$cuf kernel do(3) <<<grid, block, 0, stream>>>",
	"!$acc loop seq",
	"!$acc declare create(a) copyin(b)",
}

func addStatementSeeds(f *testing.F) {
	for _, s := range fortranSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addStringSeeds(f *testing.F, seeds []string) {
	for _, s := range seeds {
		f.Add(s)
	}
}

// addTestdataSeeds adds every Fortran file found under a testdata tree,
// when the repository has one.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".f90", ".f95", ".f03", ".f08", ".cuf", ".f":
		default:
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) > maxSeedBytes {
		src = src[:maxSeedBytes]
	}
	return bytes.Clone(src)
}
