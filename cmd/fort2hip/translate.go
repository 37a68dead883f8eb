package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fort2hip/internal/buildpipeline"
	"fort2hip/internal/diag"
	"fort2hip/internal/diagfmt"
	"fort2hip/internal/driver"
	"fort2hip/internal/observ"
)

var translateCmd = &cobra.Command{
	Use:   "translate [paths...]",
	Short: "Generate HIP kernels for annotated loop nests and device procedures",
	Long: `Translate writes <file>.hip.cpp with kernels and launchers and
<file>_kernels.f90 with the matching interfaces and CPU fallbacks for every
input file that contains at least one kernel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	f := translateCmd.Flags()
	f.String("output-dir", "", "directory for generated files (default: next to each source)")
	f.String("strategy", "", "loop collapse strategy for CUDA Fortran kernels (grid|collapse)")
	f.Bool("c-style-tensors", false, "linearize array accesses instead of Fortran-style indexing")
	f.Int("block-size", 0, "default threads per block")
	f.String("vector-length", "", "vector lanes of OpenACC kernels (default warpSize)")
	f.String("keyword-case", "", "keyword case of the Fortran fallback (lower|upper|camel)")
	f.Bool("dry-run", false, "render without writing files")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	kopts, err := s.kernelOptions()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	timer := observ.NewTimer()
	var files []string
	err = timer.Measure("list", func() (string, error) {
		files, err = driver.ListFortranFiles(args)
		return fmt.Sprintf("%d files", len(files)), err
	})
	if err != nil {
		return err
	}

	stages := &buildpipeline.Timings{}
	opts := driver.TranslateOptions{
		IndexOptions: s.indexOptions(),
		Strict:       s.cfg.Translate.Strict,
		Kernel:       kopts,
		DryRun:       dryRun,
	}
	opts.Timings = stages
	if cmd.Flags().Changed("output-dir") || s.cfg.IsDefined("build.output_dir") {
		opts.OutputDir = s.cfg.Build.OutputDir
	}

	var res *driver.TranslateResult
	err = timer.Measure("translate", func() (string, error) {
		if shouldUseTUI(s.ui, len(files), s.quiet) {
			res, err = runTranslateWithUI(cmd.Context(), "translate", files, opts)
		} else {
			res, err = driver.TranslateFiles(cmd.Context(), files, opts)
		}
		if res == nil {
			return "", err
		}
		return fmt.Sprintf("%d kernels", res.Kernels()), err
	})
	if err != nil {
		return err
	}

	bags := []*diag.Bag{res.Bag}
	for i, f := range res.Files {
		bags = append(bags, f.Bag, res.Translated[i].Bag)
	}
	if err := printDiagnostics(cmd.ErrOrStderr(), s, bags); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !s.quiet {
		for _, t := range res.Translated {
			for _, o := range t.Outputs {
				fmt.Fprintf(out, "wrote %s\n", o)
			}
		}
		fmt.Fprintf(out, "%d kernels from %d files (%s)\n", res.Kernels(), len(files), diagfmt.Summary(bags...))
	}
	if s.timings {
		printTimings(cmd.ErrOrStderr(), timer, stages)
	}
	if res.HasErrors() {
		return errDiagnostics
	}
	return nil
}
