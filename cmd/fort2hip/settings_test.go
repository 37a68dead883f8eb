package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"fort2hip/internal/index"
	"fort2hip/internal/kernel"
	"fort2hip/internal/project"
)

func newTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.String("config", "", "")
	f.Bool("strict", false, "")
	f.Int("jobs", 0, "")
	f.StringSlice("module-dir", nil, "")
	f.StringSlice("ignore-module", nil, "")
	f.String("color", "off", "")
	f.Bool("quiet", false, "")
	f.Bool("timings", false, "")
	f.String("ui", "auto", "")
	f.String("format", "pretty", "")
	f.Int("max-diagnostics", 100, "")
	f.String("strategy", "", "")
	f.Bool("c-style-tensors", false, "")
	f.Int("block-size", 0, "")
	f.String("vector-length", "", "")
	f.String("keyword-case", "", "")
	f.String("output-dir", "", "")
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	cmd := newTestCmd(t, "--strict", "--block-size=256", "--c-style-tensors", "--module-dir=mods", "--strategy=collapse")
	cfg := project.DefaultConfig()
	if err := applyFlags(cmd, &cfg); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if !cfg.Translate.Strict {
		t.Error("strict not applied")
	}
	if cfg.Translate.DefaultBlockSize != 256 {
		t.Errorf("block size = %d, want 256", cfg.Translate.DefaultBlockSize)
	}
	if cfg.Translate.FortranStyleTensorAccess {
		t.Error("--c-style-tensors should disable Fortran-style access")
	}
	if cfg.Translate.LoopCollapseStrategy != "collapse" {
		t.Errorf("strategy = %q", cfg.Translate.LoopCollapseStrategy)
	}
	if got := cfg.Index.ModuleDirs; len(got) == 0 || got[len(got)-1] != "mods" {
		t.Errorf("module dirs = %v", got)
	}
	if cfg.Translate.KeywordCase != project.DefaultConfig().Translate.KeywordCase {
		t.Errorf("unchanged keyword case was overridden: %q", cfg.Translate.KeywordCase)
	}
}

func TestApplyFlagsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"strategy", []string{"--strategy=diagonal"}},
		{"keyword case", []string{"--keyword-case=title"}},
		{"block size", []string{"--block-size=-1"}},
		{"jobs", []string{"--jobs=-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := project.DefaultConfig()
			err := applyFlags(newTestCmd(t, tt.args...), &cfg)
			if !errors.Is(err, project.ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadSettingsReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, project.ConfigName)
	content := "[translate]\nstrict = true\ndefault_block_size = 64\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := loadSettings(newTestCmd(t, "--config="+path, "--block-size=32", "--format=JSON"))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if !s.cfg.Translate.Strict {
		t.Error("strict from file was lost")
	}
	if s.cfg.Translate.DefaultBlockSize != 32 {
		t.Errorf("flag should win over file: block size = %d", s.cfg.Translate.DefaultBlockSize)
	}
	if s.format != "json" {
		t.Errorf("format = %q", s.format)
	}
	if s.color {
		t.Error("--color=off should disable color")
	}
}

func TestLoadSettingsRejectsFormat(t *testing.T) {
	_, err := loadSettings(newTestCmd(t, "--config="+filepath.Join(t.TempDir(), "missing.toml")))
	if err == nil {
		t.Fatal("missing config file should fail")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, project.ConfigName)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = loadSettings(newTestCmd(t, "--config="+path, "--format=xml"))
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("err = %v", err)
	}
}

func TestKernelOptions(t *testing.T) {
	s := &settings{cfg: project.DefaultConfig()}
	s.cfg.Translate.LoopCollapseStrategy = "collapse"
	s.cfg.Translate.KeywordCase = "upper"
	opts, err := s.kernelOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != kernel.StrategyCollapse {
		t.Errorf("strategy = %v", opts.Strategy)
	}
	if opts.Style.KeywordCase != "upper" {
		t.Errorf("keyword case = %q", opts.Style.KeywordCase)
	}
	if opts.BlockSize != s.cfg.Translate.DefaultBlockSize {
		t.Errorf("block size = %d", opts.BlockSize)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Error("expected error")
	}
	if !shouldUseTUI(uiModeOn, 1, true) || shouldUseTUI(uiModeOff, 10, false) {
		t.Error("explicit modes must win")
	}
	if shouldUseTUI(uiModeAuto, 1, false) {
		t.Error("a single file never gets a progress view")
	}
}

func TestDescribeVariable(t *testing.T) {
	v := index.NewVariable("A", "real", "8", []string{"device", "allocatable"}, []string{":", ":"}, "")
	got := describeVariable(v)
	for _, part := range []string{"a", "real(8)", "dimension(:,:)", "device, allocatable"} {
		if !strings.Contains(got, part) {
			t.Errorf("describeVariable = %q, missing %q", got, part)
		}
	}
}
