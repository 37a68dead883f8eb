package diag

import "fort2hip/internal/source"

// Note adds secondary context to a diagnostic.
type Note struct {
	Pos source.Pos
	Msg string
}

// Diagnostic is one finding of a translation run.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Pos
	Stmt     string // offending statement text, if known
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Pos, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func (d Diagnostic) WithNote(pos source.Pos, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: pos, Msg: msg})
	return d
}

// FromError converts a translation failure into an error diagnostic,
// keeping its location when err carries one.
func FromError(err error) Diagnostic {
	var e *Error
	if As(err, &e) {
		return Diagnostic{
			Severity: SevError,
			Code:     e.Code,
			Message:  e.Error(),
			Primary:  source.Pos{File: e.Loc.File, Line: e.Loc.Line},
			Stmt:     e.Loc.Stmt,
		}
	}
	return Diagnostic{Severity: SevError, Code: UnknownCode, Message: err.Error()}
}
