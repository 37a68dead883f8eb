package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fort2hip/internal/diag"
	"fort2hip/internal/driver"
	"fort2hip/internal/observ"
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Build .f2hmod unit files for Fortran sources",
	Long: `Index scans Fortran files and writes one .f2hmod unit file per module,
program and top-level procedure. Later runs load them via --module-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("output-dir", "", "directory for unit files (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	var files []string
	err = timer.Measure("list", func() (string, error) {
		files, err = driver.ListFortranFiles(args)
		return fmt.Sprintf("%d files", len(files)), err
	})
	if err != nil {
		return err
	}

	opts := s.indexOptions()
	opts.OutputDir = s.cfg.Index.OutputDir
	var res *driver.IndexResult
	err = timer.Measure("index", func() (string, error) {
		res, err = driver.IndexFiles(cmd.Context(), files, opts)
		if res == nil {
			return "", err
		}
		return fmt.Sprintf("%d records", res.Index.Len()), err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bags := []*diag.Bag{res.Bag}
	for _, f := range res.Files {
		bags = append(bags, f.Bag)
	}
	if err := printDiagnostics(cmd.ErrOrStderr(), s, bags); err != nil {
		return err
	}
	if !s.quiet {
		for _, name := range res.Order {
			fmt.Fprintf(out, "%-32s %s\n", name, res.Digests[name].Short())
		}
		fmt.Fprintf(out, "wrote %d unit files to %s\n", len(res.Written), opts.OutputDir)
	}
	if s.timings {
		printTimings(cmd.ErrOrStderr(), timer, nil)
	}
	if res.HasErrors() {
		return errDiagnostics
	}
	return nil
}
