package index

import (
	"slices"
	"strings"
)

// Kind discriminates index records.
type Kind uint8

const (
	KindModule Kind = iota + 1
	KindProgram
	KindSubroutine
	KindFunction
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindProgram:
		return "program"
	case KindSubroutine:
		return "subroutine"
	case KindFunction:
		return "function"
	case KindType:
		return "type"
	default:
		return "unknown"
	}
}

// ParseKind maps a Fortran unit keyword to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "module":
		return KindModule, true
	case "program":
		return KindProgram, true
	case "subroutine":
		return KindSubroutine, true
	case "function":
		return KindFunction, true
	case "type":
		return KindType, true
	}
	return 0, false
}

// IsProcedure reports whether records of this kind live in Procedures.
func (k Kind) IsProcedure() bool {
	return k == KindSubroutine || k == KindFunction
}

// IsUnit reports whether records of this kind are top-level units that get
// their own persisted artifact.
func (k Kind) IsUnit() bool {
	return k == KindModule || k == KindProgram
}

// Rename is an ordered (original, renamed) pair of a use statement.
type Rename struct {
	Original string `msgpack:"original"`
	Renamed  string `msgpack:"renamed"`
}

// UsedModule is one use statement of a record.
type UsedModule struct {
	Name       string   `msgpack:"name"`
	Qualifiers []string `msgpack:"qualifiers,omitempty"` // intrinsic, non_intrinsic
	Renamings  []Rename `msgpack:"renamings,omitempty"`
	Only       []Rename `msgpack:"only,omitempty"`
}

// Variable is a declared data entity.
type Variable struct {
	Name            string   `msgpack:"name"`
	BaseType        string   `msgpack:"f_type"` // integer, real, logical, complex, character, type
	KindParam       string   `msgpack:"kind,omitempty"`
	Qualifiers      []string `msgpack:"qualifiers,omitempty"`
	Bounds          []string `msgpack:"bounds,omitempty"`
	Rank            int      `msgpack:"rank"`
	Initializer     string   `msgpack:"value,omitempty"`
	DeclareOnTarget string   `msgpack:"declare_on_target,omitempty"` // alloc, to, from, tofrom
}

// NewVariable builds a variable; the rank follows from the bounds.
func NewVariable(name, baseType, kind string, qualifiers, bounds []string, init string) Variable {
	return Variable{
		Name:        strings.ToLower(name),
		BaseType:    strings.ToLower(baseType),
		KindParam:   strings.ToLower(kind),
		Qualifiers:  qualifiers,
		Bounds:      bounds,
		Rank:        len(bounds),
		Initializer: init,
	}
}

// HasQualifier reports a qualifier, compared case-insensitively and without
// arguments ("intent(in)" matches "intent").
func (v *Variable) HasQualifier(q string) bool {
	for _, have := range v.Qualifiers {
		base, _, _ := strings.Cut(have, "(")
		if strings.EqualFold(strings.TrimSpace(base), q) || strings.EqualFold(have, q) {
			return true
		}
	}
	return false
}

// AddQualifier appends q unless already present.
func (v *Variable) AddQualifier(q string) {
	if !slices.Contains(v.Qualifiers, q) {
		v.Qualifiers = append(v.Qualifiers, q)
	}
}

// SetBounds replaces the bounds and recomputes the rank.
func (v *Variable) SetBounds(bounds []string) {
	v.Bounds = bounds
	v.Rank = len(bounds)
}

func (v *Variable) IsParameter() bool { return v.HasQualifier("parameter") }

func (v *Variable) IsArray() bool { return v.Rank > 0 }

// Clone returns a deep copy.
func (v Variable) Clone() Variable {
	v.Qualifiers = slices.Clone(v.Qualifiers)
	v.Bounds = slices.Clone(v.Bounds)
	return v
}

// Record is one module, program, procedure or derived type.
type Record struct {
	Kind         Kind         `msgpack:"kind"`
	Name         string       `msgpack:"name"`
	Variables    []Variable   `msgpack:"variables,omitempty"`
	Types        []Record     `msgpack:"types,omitempty"`
	Procedures   []Record     `msgpack:"subprograms,omitempty"`
	UsedModules  []UsedModule `msgpack:"used_modules,omitempty"`
	Attributes   []string     `msgpack:"attributes,omitempty"`
	DummyArgs    []string     `msgpack:"dummy_args,omitempty"`
	ResultName   string       `msgpack:"result_name,omitempty"`
	ImplicitNone bool         `msgpack:"implicit_none,omitempty"`
	File         string       `msgpack:"file,omitempty"`
	Line         int          `msgpack:"lineno,omitempty"`
}

// NewRecord creates an empty record of the given kind.
func NewRecord(kind Kind, name string) Record {
	return Record{Kind: kind, Name: strings.ToLower(name)}
}

// Variable returns the variable called name, if declared in r.
func (r *Record) Variable(name string) (*Variable, bool) {
	for i := range r.Variables {
		if strings.EqualFold(r.Variables[i].Name, name) {
			return &r.Variables[i], true
		}
	}
	return nil, false
}

// Procedure returns the nested procedure called name.
func (r *Record) Procedure(name string) (*Record, bool) {
	for i := range r.Procedures {
		if strings.EqualFold(r.Procedures[i].Name, name) {
			return &r.Procedures[i], true
		}
	}
	return nil, false
}

// Type returns the derived type called name.
func (r *Record) Type(name string) (*Record, bool) {
	for i := range r.Types {
		if strings.EqualFold(r.Types[i].Name, name) {
			return &r.Types[i], true
		}
	}
	return nil, false
}

// HasAttribute reports an attribute such as "global" or "device".
func (r *Record) HasAttribute(a string) bool {
	for _, have := range r.Attributes {
		if strings.EqualFold(have, a) {
			return true
		}
	}
	return false
}

// AddVariable appends v, replacing a previous declaration with the same
// name so that names stay unique within the record.
func (r *Record) AddVariable(v Variable) {
	if prev, ok := r.Variable(v.Name); ok {
		*prev = v
		return
	}
	r.Variables = append(r.Variables, v)
}

// IsDummy reports whether name is a dummy argument of r.
func (r *Record) IsDummy(name string) bool {
	for _, a := range r.DummyArgs {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	vars := make([]Variable, len(r.Variables))
	for i := range r.Variables {
		vars[i] = r.Variables[i].Clone()
	}
	r.Variables = vars
	r.Types = cloneRecords(r.Types)
	r.Procedures = cloneRecords(r.Procedures)
	used := make([]UsedModule, len(r.UsedModules))
	for i, u := range r.UsedModules {
		u.Qualifiers = slices.Clone(u.Qualifiers)
		u.Renamings = slices.Clone(u.Renamings)
		u.Only = slices.Clone(u.Only)
		used[i] = u
	}
	r.UsedModules = used
	r.Attributes = slices.Clone(r.Attributes)
	r.DummyArgs = slices.Clone(r.DummyArgs)
	return r
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
