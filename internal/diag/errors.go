package diag

import (
	"errors"
	"fmt"
)

// Kind classifies translation failures.
type Kind uint8

const (
	KindSyntax Kind = iota + 1
	KindLookup
	KindResolution
	KindUnsupportedKind
	KindMixedPartitioning
	KindArity
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindLookup:
		return "lookup error"
	case KindResolution:
		return "resolution error"
	case KindUnsupportedKind:
		return "unsupported kind"
	case KindMixedPartitioning:
		return "mixed partitioning"
	case KindArity:
		return "arity error"
	default:
		return "error"
	}
}

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrSyntax            = &Error{Kind: KindSyntax}
	ErrLookup            = &Error{Kind: KindLookup}
	ErrResolution        = &Error{Kind: KindResolution}
	ErrUnsupportedKind   = &Error{Kind: KindUnsupportedKind}
	ErrMixedPartitioning = &Error{Kind: KindMixedPartitioning}
	ErrArity             = &Error{Kind: KindArity}
)

// Location pins a failure to a statement.
type Location struct {
	File string
	Line int
	Stmt string
}

func (l Location) String() string {
	switch {
	case l.File != "" && l.Line > 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	case l.File != "":
		return l.File
	case l.Line > 0:
		return fmt.Sprintf("line %d", l.Line)
	}
	return ""
}

// Error is a classified translation failure.
type Error struct {
	Kind Kind
	Code Code
	Loc  Location
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if loc := e.Loc.String(); loc != "" {
		msg = loc + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind and code.
func Errorf(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// At returns e with its location filled in where still empty.
func (e *Error) At(loc Location) *Error {
	if e.Loc.File == "" {
		e.Loc.File = loc.File
	}
	if e.Loc.Line == 0 {
		e.Loc.Line = loc.Line
	}
	if e.Loc.Stmt == "" {
		e.Loc.Stmt = loc.Stmt
	}
	return e
}

// Locate attaches loc to the first *Error in err's chain, or wraps err
// as a syntax error when it has no classification.
func Locate(err error, loc Location) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		e.At(loc)
		return err
	}
	return (&Error{Kind: KindSyntax, Code: SynBadStatement, Err: err}).At(loc)
}

// As is errors.As, re-exported to keep call sites short.
func As(err error, target any) bool { return errors.As(err, target) }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
