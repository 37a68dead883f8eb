// Package driver runs the indexing and translation passes over sets of
// Fortran files.
package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var fortranExts = map[string]bool{
	".f": true, ".for": true, ".f77": true, ".f90": true, ".f95": true,
	".f03": true, ".f08": true, ".cuf": true,
}

// IsFortranFile reports whether path has a Fortran or CUDA Fortran suffix,
// in either case.
func IsFortranFile(path string) bool {
	return fortranExts[strings.ToLower(filepath.Ext(path))]
}

// ListFortranFiles expands directories into the Fortran files below them.
// Files named explicitly are kept whatever their suffix. The result is
// sorted and free of duplicates.
func ListFortranFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsFortranFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
