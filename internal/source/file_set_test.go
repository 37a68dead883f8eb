package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLines(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.f90", []byte("program p\n  x = 1\nend program"))
	f := fs.Get(id)

	if got := f.NumLines(); got != 3 {
		t.Fatalf("NumLines = %d, want 3", got)
	}
	cases := map[int]string{1: "program p", 2: "  x = 1", 3: "end program", 4: "", 0: ""}
	for n, want := range cases {
		if got := f.Line(n); got != want {
			t.Errorf("Line(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.f90")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFmodule m\r\nend module\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "module m\nend module\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %b", f.Flags)
	}
	if _, ok := fs.GetByPath(path); !ok {
		t.Fatalf("GetByPath failed")
	}
	if len(f.Digest()) != 64 {
		t.Fatalf("digest length %d", len(f.Digest()))
	}
}
