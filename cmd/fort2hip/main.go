package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fort2hip/internal/prof"
	"fort2hip/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "fort2hip",
	Short: "Translate OpenACC and CUDA Fortran kernels to HIP C++",
	Long: `fort2hip indexes Fortran modules and lowers directive-annotated loop nests
and CUDA Fortran device procedures to HIP kernels, launchers and CPU fallbacks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		profiles, err = startProfiling(cmd)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if traceCleanup != nil {
			traceCleanup()
		}
		return profiles.Stop()
	},
}

var (
	traceCleanup func()
	profiles     *prof.Session
)

func startProfiling(cmd *cobra.Command) (*prof.Session, error) {
	flags := cmd.Flags()
	var opts prof.Options
	opts.CPU, _ = flags.GetString("cpuprofile")
	opts.Mem, _ = flags.GetString("memprofile")
	opts.Trace, _ = flags.GetString("runtime-trace")
	if !opts.Enabled() {
		return nil, nil
	}
	return prof.Start(opts)
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to fort2hip.toml (default: searched upward from the working directory)")
	pf.Bool("strict", false, "treat missing modules and symbols as errors")
	pf.Int("jobs", 0, "parallel workers (0 = GOMAXPROCS)")
	pf.StringSlice("module-dir", nil, "directory with .f2hmod unit files (repeatable)")
	pf.StringSlice("ignore-module", nil, "module never looked up (repeatable, adds to the configured list)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("ui", "auto", "progress view for multi-file runs (auto|on|off)")
	pf.String("format", "pretty", "diagnostics format (pretty|json)")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics per file")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "events kept in ring mode")
	pf.String("cpuprofile", "", "write a CPU profile to this file")
	pf.String("memprofile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
