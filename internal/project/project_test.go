package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigName), "")
	deep := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	path, ok, err := FindConfig(deep)
	if err != nil || !ok {
		t.Fatalf("FindConfig: ok=%v err=%v", ok, err)
	}
	want, _ := filepath.Abs(filepath.Join(root, ConfigName))
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, ok, _ := FindConfig(t.TempDir()); ok {
		t.Error("found a config outside the project")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigName)
	writeFile(t, path, `
[translate]
strict = true
loop_collapse_strategy = "collapse"
default_block_size = 256

[index]
module_dirs = ["mods", "/opt/mods"]

[build]
jobs = 4
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Translate.Strict || cfg.Translate.LoopCollapseStrategy != "collapse" || cfg.Translate.DefaultBlockSize != 256 {
		t.Errorf("translate = %+v", cfg.Translate)
	}
	if !cfg.Translate.FortranStyleTensorAccess {
		t.Errorf("unset keys must keep their defaults")
	}
	if len(cfg.Translate.ModuleIgnoreList) == 0 {
		t.Errorf("default ignore list lost")
	}
	if got := cfg.Index.ModuleDirs; len(got) != 2 || got[0] != filepath.Join(dir, "mods") || got[1] != "/opt/mods" {
		t.Errorf("module dirs = %v", got)
	}
	if cfg.Build.Jobs != 4 {
		t.Errorf("jobs = %d", cfg.Build.Jobs)
	}
	if !cfg.IsDefined("translate.strict") || cfg.IsDefined("translate.vector_length") {
		t.Errorf("IsDefined mismatch")
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"unknown key", "[translate]\nfoo = 1\n"},
		{"bad strategy", "[translate]\nloop_collapse_strategy = \"diagonal\"\n"},
		{"bad case", "[translate]\nkeyword_case = \"snake\"\n"},
		{"bad block", "[translate]\ndefault_block_size = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigName)
			writeFile(t, path, tt.body)
			_, err := LoadConfig(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCombineDependsOnOrder(t *testing.T) {
	a, b, c := Sum([]byte("a")), Sum([]byte("b")), Sum([]byte("c"))
	if Combine(a, b, c) == Combine(a, c, b) {
		t.Errorf("dependency order must matter")
	}
	if Combine(a) == a {
		t.Errorf("combine must rehash")
	}
	if len(Combine(a).Short()) != 16 {
		t.Errorf("short digest length")
	}
}
