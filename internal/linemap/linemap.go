// Package linemap turns free-form Fortran source into a stream of logical
// statements: continuations joined, comments stripped, ';' split.
// Directive lines (!$acc, !$cuf) survive as statements of their own.
package linemap

import (
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/source"
)

// Statement is one logical statement. Prolog and Epilog hold lines a
// later pass inserts around Body; Active is false for statements a pass
// has consumed.
type Statement struct {
	Body   string
	Prolog []string
	Epilog []string
	File   string
	Line   int // first physical line
	Active bool
}

// Pos returns the statement position.
func (s Statement) Pos() source.Pos { return source.Pos{File: s.File, Line: s.Line} }

// Loc returns the statement location for error reporting.
func (s Statement) Loc() diag.Location {
	return diag.Location{File: s.File, Line: s.Line, Stmt: s.Body}
}

// FromFile builds the statement stream of a loaded file.
func FromFile(f *source.File) ([]Statement, error) {
	return FromSource(f.Path, string(f.Content))
}

// FromSource builds the statement stream of src.
func FromSource(file, src string) ([]Statement, error) {
	lines := strings.Split(src, "\n")
	var out []Statement
	for i := 0; i < len(lines); i++ {
		first := i + 1
		raw := strings.TrimRight(lines[i], " \t\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if sentinel, ok := directiveSentinel(trimmed); ok {
			body := trimmed
			for strings.HasSuffix(body, "&") && i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				s, isDir := directiveSentinel(next)
				if !isDir || !strings.EqualFold(s, sentinel) {
					break
				}
				i++
				cont := strings.TrimSpace(next[len(s):])
				cont = strings.TrimPrefix(cont, "&")
				body = strings.TrimSpace(strings.TrimSuffix(body, "&")) + " " + strings.TrimSpace(cont)
			}
			out = append(out, Statement{Body: body, File: file, Line: first, Active: true})
			continue
		}
		if trimmed[0] == '!' {
			continue
		}

		var joined strings.Builder
		code, quote, err := stripComment(trimmed, 0)
		if err != nil {
			return nil, located(err, file, first, trimmed)
		}
		for {
			code = strings.TrimSpace(code)
			cont := strings.HasSuffix(code, "&")
			if cont {
				code = strings.TrimSuffix(code, "&")
			}
			joined.WriteString(code)
			if !cont {
				break
			}
			// comment lines may sit between continuation lines
			for i+1 < len(lines) && isCommentOrBlank(lines[i+1]) {
				i++
			}
			if i+1 >= len(lines) {
				return nil, located(diag.Errorf(diag.KindSyntax, diag.SynBadStatement,
					"continuation at end of file"), file, first, joined.String())
			}
			i++
			next := strings.TrimSpace(lines[i])
			if strings.HasPrefix(next, "&") {
				next = next[1:]
			} else if quote == 0 {
				joined.WriteByte(' ')
			}
			code, quote, err = stripComment(next, quote)
			if err != nil {
				return nil, located(err, file, i+1, next)
			}
		}
		if quote != 0 {
			return nil, located(diag.Errorf(diag.KindSyntax, diag.SynUnterminatedText,
				"unterminated character literal"), file, first, joined.String())
		}
		for _, part := range splitStatements(joined.String()) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, Statement{Body: part, File: file, Line: first, Active: true})
			}
		}
	}
	return out, nil
}

// directiveSentinel returns the "!$acc" or "!$cuf" prefix of line.
func directiveSentinel(line string) (string, bool) {
	if len(line) < 5 {
		return "", false
	}
	switch s := strings.ToLower(line[:5]); s {
	case "!$acc", "!$cuf":
		if len(line) == 5 || !isWordByte(line[5]) {
			return s, true
		}
	}
	return "", false
}

func isCommentOrBlank(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return true
	}
	_, dir := directiveSentinel(t)
	return t[0] == '!' && !dir
}

// stripComment removes a trailing '!' comment outside character literals.
// quote is the literal delimiter still open from a previous line; the
// returned quote is the one left open at the end of this line.
func stripComment(line string, quote byte) (string, byte, error) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				if i+1 < len(line) && line[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '!':
			return line[:i], 0, nil
		}
	}
	if quote != 0 && !strings.HasSuffix(strings.TrimSpace(line), "&") {
		return "", 0, diag.Errorf(diag.KindSyntax, diag.SynUnterminatedText, "unterminated character literal")
	}
	return line, quote, nil
}

// splitStatements splits on ';' outside character literals.
func splitStatements(s string) []string {
	var out []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || ((b|0x20) >= 'a' && (b|0x20) <= 'z')
}

func located(err error, file string, line int, stmt string) error {
	return diag.Locate(err, diag.Location{File: file, Line: line, Stmt: stmt})
}
