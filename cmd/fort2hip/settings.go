package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fort2hip/internal/ast"
	"fort2hip/internal/driver"
	"fort2hip/internal/kernel"
	"fort2hip/internal/project"
)

// settings merge fort2hip.toml with the command line; flags win when set.
type settings struct {
	cfg            project.Config
	color          bool
	quiet          bool
	timings        bool
	ui             uiMode
	format         string
	maxDiagnostics int
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg := project.DefaultConfig()
	if path == "" {
		found, ok, err := project.FindConfig(".")
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		loaded, err := project.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}

	s := &settings{cfg: cfg}
	s.quiet, _ = flags.GetBool("quiet")
	s.timings, _ = flags.GetBool("timings")
	s.maxDiagnostics, _ = flags.GetInt("max-diagnostics")
	s.format, _ = flags.GetString("format")
	s.format = strings.ToLower(s.format)
	if s.format != "pretty" && s.format != "json" {
		return nil, fmt.Errorf("unsupported format %q (must be pretty or json)", s.format)
	}
	colorMode, _ := flags.GetString("color")
	switch strings.ToLower(colorMode) {
	case "on":
		s.color = true
	case "off":
		s.color = false
	case "auto", "":
		s.color = isTerminal(os.Stdout) && !color.NoColor
	default:
		return nil, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorMode)
	}
	color.NoColor = !s.color
	uiValue, _ := flags.GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return nil, err
	}
	s.ui = mode
	return s, nil
}

// applyFlags overrides configuration values with explicitly set flags.
// Flags a command does not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *project.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}
	if changed("strict") {
		cfg.Translate.Strict, _ = flags.GetBool("strict")
	}
	if changed("jobs") {
		cfg.Build.Jobs, _ = flags.GetInt("jobs")
	}
	if changed("module-dir") {
		dirs, _ := flags.GetStringSlice("module-dir")
		cfg.Index.ModuleDirs = append(cfg.Index.ModuleDirs, dirs...)
	}
	if changed("ignore-module") {
		names, _ := flags.GetStringSlice("ignore-module")
		cfg.Translate.ModuleIgnoreList = append(cfg.Translate.ModuleIgnoreList, names...)
	}
	if changed("strategy") {
		cfg.Translate.LoopCollapseStrategy, _ = flags.GetString("strategy")
	}
	if changed("c-style-tensors") {
		cStyle, _ := flags.GetBool("c-style-tensors")
		cfg.Translate.FortranStyleTensorAccess = !cStyle
	}
	if changed("block-size") {
		cfg.Translate.DefaultBlockSize, _ = flags.GetInt("block-size")
	}
	if changed("vector-length") {
		cfg.Translate.VectorLength, _ = flags.GetString("vector-length")
	}
	if changed("keyword-case") {
		cfg.Translate.KeywordCase, _ = flags.GetString("keyword-case")
	}
	if changed("output-dir") {
		dir, _ := flags.GetString("output-dir")
		cfg.Index.OutputDir = dir
		cfg.Build.OutputDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *settings) indexOptions() driver.IndexOptions {
	return driver.IndexOptions{
		Jobs:           s.cfg.Build.Jobs,
		MaxDiagnostics: s.maxDiagnostics,
		ModuleDirs:     s.cfg.Index.ModuleDirs,
		Ignore:         s.cfg.Translate.ModuleIgnoreList,
	}
}

func (s *settings) kernelOptions() (kernel.Options, error) {
	strategy, err := kernel.ParseStrategy(s.cfg.Translate.LoopCollapseStrategy)
	if err != nil {
		return kernel.Options{}, err
	}
	return kernel.Options{
		Strategy:            strategy,
		FortranStyleTensors: s.cfg.Translate.FortranStyleTensorAccess,
		BlockSize:           s.cfg.Translate.DefaultBlockSize,
		VectorLength:        s.cfg.Translate.VectorLength,
		Style:               ast.FortranStyle{KeywordCase: s.cfg.Translate.KeywordCase, Indent: ast.DefaultFortranStyle.Indent},
	}, nil
}
