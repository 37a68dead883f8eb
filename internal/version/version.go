// Package version holds the build fingerprint of fort2hip. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version.
	Version = "0.1.0-dev"

	GitCommit = ""

	BuildDate = ""
)

// Info is the serializable build fingerprint.
type Info struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Current returns the fingerprint of this binary.
func Current() Info {
	return Info{Tool: "fort2hip", Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
}

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders v with each numeric component in its own color. Anything
// that is not major.minor.patch is returned unchanged.
func Colored(v string, enabled bool) string {
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	if !enabled || len(parts) != 3 {
		return v
	}
	paint := func(c *color.Color, s string) string {
		c.EnableColor()
		return c.Sprint(s)
	}
	out := paint(majorColor, parts[0]) + "." + paint(minorColor, parts[1]) + "." + paint(patchColor, parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Banner is the one-line summary printed by "fort2hip version".
func Banner(info Info, enabled bool) string {
	s := fmt.Sprintf("%s %s", info.Tool, Colored(info.Version, enabled))
	if info.GitCommit != "" {
		commit := info.GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		s += " (" + commit + ")"
	}
	if info.BuildDate != "" {
		s += " built " + info.BuildDate
	}
	return s
}
