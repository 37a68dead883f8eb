package version

import (
	"strings"
	"testing"
)

func TestBannerPlain(t *testing.T) {
	info := Info{Tool: "fort2hip", Version: "1.2.3", GitCommit: "abc123def4567890", BuildDate: "2024-01-15"}
	if got, want := Banner(info, false), "fort2hip 1.2.3 (abc123def456) built 2024-01-15"; got != want {
		t.Errorf("Banner = %q, want %q", got, want)
	}
}

func TestColored(t *testing.T) {
	got := Colored("0.1.0-dev", true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Errorf("Colored = %q", got)
	}
	if Colored("0.1.0-dev", false) != "0.1.0-dev" {
		t.Errorf("color applied while disabled")
	}
	if Colored("nightly", true) != "nightly" {
		t.Errorf("non-semver version altered")
	}
}

func TestCurrentFollowsOverrides(t *testing.T) {
	orig := GitCommit
	defer func() { GitCommit = orig }()
	GitCommit = "deadbeef"
	if Current().GitCommit != "deadbeef" || Current().Version == "" {
		t.Errorf("Current = %+v", Current())
	}
}
