// Package project holds the fort2hip.toml configuration and the content
// digests of translation units.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is wrapped by every validation failure of LoadConfig.
var ErrInvalidConfig = errors.New("invalid configuration")

// TranslateConfig is the [translate] table.
type TranslateConfig struct {
	Strict                   bool     `toml:"strict"`
	LoopCollapseStrategy     string   `toml:"loop_collapse_strategy"`
	FortranStyleTensorAccess bool     `toml:"fortran_style_tensor_access"`
	DefaultBlockSize         int      `toml:"default_block_size"`
	VectorLength             string   `toml:"vector_length"`
	KeywordCase              string   `toml:"keyword_case"`
	ModuleIgnoreList         []string `toml:"module_ignore_list"`
}

// IndexConfig is the [index] table.
type IndexConfig struct {
	ModuleDirs []string `toml:"module_dirs"`
	OutputDir  string   `toml:"output_dir"`
}

// BuildConfig is the [build] table.
type BuildConfig struct {
	Jobs      int    `toml:"jobs"`
	OutputDir string `toml:"output_dir"`
}

// Config is a decoded fort2hip.toml.
type Config struct {
	Translate TranslateConfig `toml:"translate"`
	Index     IndexConfig     `toml:"index"`
	Build     BuildConfig     `toml:"build"`

	// Path is the file the values came from; empty for defaults.
	Path    string   `toml:"-"`
	defined [][]string
}

// DefaultConfig is used when no fort2hip.toml exists.
func DefaultConfig() Config {
	return Config{
		Translate: TranslateConfig{
			LoopCollapseStrategy:     "grid",
			FortranStyleTensorAccess: true,
			DefaultBlockSize:         128,
			KeywordCase:              "lower",
			ModuleIgnoreList:         []string{"iso_c_binding", "iso_fortran_env", "cudafor", "openacc", "omp_lib", "mpi"},
		},
		Index: IndexConfig{OutputDir: "."},
		Build: BuildConfig{OutputDir: "."},
	}
}

// LoadConfig decodes path over the defaults. Relative directories are
// taken relative to the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalidConfig, strings.Join(keys, ", "))
	}
	cfg.Path = path
	for _, k := range meta.Keys() {
		cfg.defined = append(cfg.defined, slices.Clone([]string(k)))
	}
	base := filepath.Dir(path)
	for i, d := range cfg.Index.ModuleDirs {
		cfg.Index.ModuleDirs[i] = relativeTo(base, d)
	}
	cfg.Index.OutputDir = relativeTo(base, cfg.Index.OutputDir)
	cfg.Build.OutputDir = relativeTo(base, cfg.Build.OutputDir)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// IsDefined reports whether the file set the dotted key, e.g.
// "translate.strict".
func (c Config) IsDefined(key string) bool {
	want := strings.Split(key, ".")
	for _, k := range c.defined {
		if slices.Equal(k, want) {
			return true
		}
	}
	return false
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Translate.LoopCollapseStrategy {
	case "grid", "collapse":
	default:
		return fmt.Errorf("%w: loop_collapse_strategy %q (want grid or collapse)", ErrInvalidConfig, c.Translate.LoopCollapseStrategy)
	}
	switch c.Translate.KeywordCase {
	case "lower", "upper", "camel":
	default:
		return fmt.Errorf("%w: keyword_case %q (want lower, upper or camel)", ErrInvalidConfig, c.Translate.KeywordCase)
	}
	if c.Translate.DefaultBlockSize <= 0 {
		return fmt.Errorf("%w: default_block_size must be positive", ErrInvalidConfig)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative", ErrInvalidConfig)
	}
	return nil
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
