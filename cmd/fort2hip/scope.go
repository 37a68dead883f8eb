package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fort2hip/internal/diag"
	"fort2hip/internal/driver"
	"fort2hip/internal/index"
	"fort2hip/internal/scope"
)

var scopeCmd = &cobra.Command{
	Use:   "scope TAG [paths...]",
	Short: "Print the variables, types and procedures visible in a program unit",
	Long: `Scope resolves TAG, a colon-joined unit path such as "solver:step",
against the given sources and the unit files of --module-dir and prints
what the unit sees, most recently declared first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScope,
}

func runScope(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	files, err := driver.ListFortranFiles(args[1:])
	if err != nil {
		return err
	}
	res, err := driver.IndexFiles(cmd.Context(), files, s.indexOptions())
	if err != nil {
		return err
	}
	bag := diag.NewBag(s.maxDiagnostics)
	resolver := scope.NewResolver(res.Index, scope.Options{
		Strict:        s.cfg.Translate.Strict,
		IgnoreModules: s.cfg.Translate.ModuleIgnoreList,
		Reporter:      diag.BagReporter{Bag: bag},
	})
	sc, rerr := resolver.Resolve(args[0])
	bags := []*diag.Bag{res.Bag}
	for _, f := range res.Files {
		bags = append(bags, f.Bag)
	}
	if rerr != nil {
		bag.Add(diag.FromError(rerr))
	}
	bags = append(bags, bag)
	if err := printDiagnostics(cmd.ErrOrStderr(), s, bags); err != nil {
		return err
	}
	if rerr != nil {
		return errDiagnostics
	}
	printScope(cmd.OutOrStdout(), sc)
	return nil
}

func printScope(w io.Writer, sc *scope.Scope) {
	fmt.Fprintf(w, "scope %s\n", sc.Tag)
	vars := sc.Variables()
	fmt.Fprintf(w, "variables (%d):\n", len(vars))
	for i := len(vars) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  %s\n", describeVariable(vars[i]))
	}
	types := sc.Types()
	fmt.Fprintf(w, "types (%d):\n", len(types))
	for i := len(types) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  %s (%d components)\n", types[i].Name, len(types[i].Variables))
	}
	procs := sc.Procedures()
	fmt.Fprintf(w, "procedures (%d):\n", len(procs))
	for i := len(procs) - 1; i >= 0; i-- {
		p := procs[i]
		line := fmt.Sprintf("  %s %s(%s)", p.Kind, p.Name, strings.Join(p.DummyArgs, ", "))
		if len(p.Attributes) > 0 {
			line += " [" + strings.Join(p.Attributes, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}

func describeVariable(v index.Variable) string {
	t := v.BaseType
	if v.KindParam != "" {
		t += "(" + v.KindParam + ")"
	}
	s := fmt.Sprintf("%-16s %s", v.Name, t)
	if v.Rank > 0 {
		s += " dimension(" + strings.Join(v.Bounds, ",") + ")"
	}
	if len(v.Qualifiers) > 0 {
		s += ", " + strings.Join(v.Qualifiers, ", ")
	}
	if v.Initializer != "" {
		s += " = " + v.Initializer
	}
	return s
}
