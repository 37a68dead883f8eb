package diag

import "fmt"

// Code is a stable numeric identifier of a diagnostic.
// Groups: 1000 syntax, 2000 lookup, 3000 resolution, 4000 kinds,
// 5000 loop mapping, 6000 I/O and project.
type Code uint16

const (
	UnknownCode Code = 0

	SynInfo             Code = 1000
	SynBadStatement     Code = 1001
	SynBadDeclaration   Code = 1002
	SynBadUse           Code = 1003
	SynBadDirective     Code = 1004
	SynUnknownClause    Code = 1005
	SynUnbalancedBlock  Code = 1006
	SynBadExpression    Code = 1007
	SynUnknownRenamed   Code = 1008
	SynUnterminatedText Code = 1009

	LookupInfo            Code = 2000
	LookupModuleNotFound  Code = 2001
	LookupVariableUnknown Code = 2002
	LookupTypeUnknown     Code = 2003
	LookupProcUnknown     Code = 2004
	LookupUnitNotFound    Code = 2005
	LookupCircularUse     Code = 2006
	LookupDuplicateUnit   Code = 2007

	ResInfo       Code = 3000
	ResUnresolved Code = 3001

	KindInfo            Code = 4000
	KindUnsupportedSize Code = 4001
	KindUnsupportedType Code = 4002

	LoopInfo               Code = 5000
	LoopMixedPartitioning  Code = 5001
	LoopTileArity          Code = 5002
	LoopNotPerfectlyNested Code = 5003
	LoopBadBounds          Code = 5004

	IOInfo          Code = 6000
	IOReadFailed    Code = 6001
	IOWriteFailed   Code = 6002
	IOBadUnitFile   Code = 6003
	IOConfigInvalid Code = 6004
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	SynInfo:             "Syntax information",
	SynBadStatement:     "Malformed statement",
	SynBadDeclaration:   "Malformed declaration",
	SynBadUse:           "Malformed use statement",
	SynBadDirective:     "Malformed directive",
	SynUnknownClause:    "Clause not allowed on this directive",
	SynUnbalancedBlock:  "Unbalanced block structure",
	SynBadExpression:    "Malformed expression",
	SynUnknownRenamed:   "Renamed symbol does not exist in module",
	SynUnterminatedText: "Unterminated string literal",

	LookupInfo:            "Lookup information",
	LookupModuleNotFound:  "Used module not found",
	LookupVariableUnknown: "Unknown variable",
	LookupTypeUnknown:     "Unknown derived type",
	LookupProcUnknown:     "Unknown procedure",
	LookupUnitNotFound:    "Program unit not found",
	LookupCircularUse:     "Circular module use",
	LookupDuplicateUnit:   "Program unit defined more than once",

	ResInfo:       "Resolution information",
	ResUnresolved: "Type queried before resolution",

	KindInfo:            "Kind information",
	KindUnsupportedSize: "Unsupported kind width",
	KindUnsupportedType: "Type has no HIP equivalent",

	LoopInfo:               "Loop information",
	LoopMixedPartitioning:  "Grid and gang/worker/vector partitioning mixed in one nest",
	LoopTileArity:          "Tile size count does not match loop count",
	LoopNotPerfectlyNested: "Loop nest is not perfectly nested",
	LoopBadBounds:          "Loop bounds cannot be mapped",

	IOInfo:          "I/O information",
	IOReadFailed:    "Cannot read file",
	IOWriteFailed:   "Cannot write file",
	IOBadUnitFile:   "Corrupt unit file",
	IOConfigInvalid: "Invalid configuration",
}

// ID returns the short identifier, e.g. "LKP2001".
func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LKP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("KND%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("LOP%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
