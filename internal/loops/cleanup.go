package loops

import (
	"regexp"
	"strings"
)

var (
	helperDecl = regexp.MustCompile(`^\s*(const\s+)?int\s+(_[A-Za-z_]+[0-9]+)\s*(?:=\s*(.*?))?\s*;\s*$`)
	aliasRHS   = regexp.MustCompile(`^(?:[A-Za-z_][A-Za-z0-9_]*|[0-9]+)$`)
)

func wordPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

// RemoveUnusedHelpers simplifies helper declarations in code until
// nothing changes. Only full-line declarations of names minted by lb are
// touched, and only when the name does not occur in any of others:
// unreferenced declarations are dropped, constant aliases of an
// identifier or literal are substituted and constants read once are
// inlined in parentheses. Non-const ints are never inlined.
func RemoveUnusedHelpers(lb *Labeler, code string, others ...string) string {
	lines := strings.SplitAfter(code, "\n")
	for simplifyOnce(lb, lines, others) {
		lines = dropEmpty(lines)
	}
	return strings.Join(lines, "")
}

func dropEmpty(lines []string) []string {
	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func simplifyOnce(lb *Labeler, lines []string, others []string) bool {
	joined := strings.Join(lines, "")
	for i, line := range lines {
		m := helperDecl.FindStringSubmatch(strings.TrimSuffix(line, "\n"))
		if m == nil || !lb.owns(m[2]) {
			continue
		}
		name, isConst, rhs := m[2], m[1] != "", m[3]
		word := wordPattern(name)
		if usedIn(word, others) {
			continue
		}
		uses := len(word.FindAllStringIndex(joined, -1)) - 1
		var subst string
		switch {
		case uses == 0:
			lines[i] = ""
			return true
		case !isConst || rhs == "":
			continue
		case aliasRHS.MatchString(rhs):
			subst = rhs
		case uses == 1:
			subst = "(" + rhs + ")"
		default:
			continue
		}
		lines[i] = ""
		for j := range lines {
			lines[j] = word.ReplaceAllLiteralString(lines[j], subst)
		}
		return true
	}
	return false
}

func usedIn(word *regexp.Regexp, others []string) bool {
	for _, o := range others {
		if word.MatchString(o) {
			return true
		}
	}
	return false
}
