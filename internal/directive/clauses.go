package directive

import "slices"

var (
	parallelClauses = []string{
		"async", "wait", "num_gangs", "num_workers", "vector_length", "device_type", "dtype",
		"if", "self", "reduction", "copy", "copyin", "copyout", "create", "no_create",
		"present", "deviceptr", "attach", "private", "firstprivate", "default",
	}
	loopClauses = []string{
		"collapse", "gang", "worker", "vector", "seq", "independent", "auto", "tile",
		"device_type", "dtype", "private", "reduction",
	}
	dataClauses = []string{
		"if", "copy", "copyin", "copyout", "create", "no_create", "present", "deviceptr",
		"attach", "default",
	}
)

func without(list []string, drop ...string) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		if !slices.Contains(drop, c) {
			out = append(out, c)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, c := range b {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// accClauses lists the clauses each OpenACC construct accepts.
var accClauses = func() map[string][]string {
	serial := without(parallelClauses, "num_gangs", "num_workers", "vector_length")
	kernels := without(parallelClauses, "reduction", "private", "firstprivate")
	m := map[string][]string{
		"parallel":      parallelClauses,
		"serial":        serial,
		"kernels":       kernels,
		"loop":          loopClauses,
		"parallel loop": union(parallelClauses, loopClauses),
		"serial loop":   union(serial, loopClauses),
		"kernels loop":  union(kernels, loopClauses),
		"data":          dataClauses,
		"enter data":    {"if", "async", "wait", "copyin", "create", "attach"},
		"exit data":     {"if", "async", "wait", "copyout", "delete", "detach", "finalize"},
		"host_data":     {"use_device", "if", "if_present"},
		"cache":         {},
		"atomic":        {"read", "write", "update", "capture"},
		"declare":       {"copy", "copyin", "copyout", "create", "present", "deviceptr", "device_resident", "link"},
		"routine":       {"gang", "worker", "vector", "seq", "bind", "device_type", "dtype", "nohost"},
		"update":        {"async", "wait", "device_type", "dtype", "if", "if_present", "self", "host", "device"},
		"wait":          {"async", "if"},
		"init":          {"device_type", "dtype", "device_num", "if"},
		"shutdown":      {"device_type", "dtype", "device_num", "if"},
		"set":           {"device_type", "dtype", "device_num", "if", "default_async"},
	}
	return m
}()

// cufClauses lists the clauses of "!$cuf kernel do".
var cufClauses = []string{"reduce", "stream"}

// constructs in longest-first order so "parallel loop" wins over "parallel".
var accConstructs = []string{
	"end parallel loop", "end kernels loop", "end serial loop",
	"end parallel", "end kernels", "end serial", "end data", "end host_data", "end atomic",
	"parallel loop", "kernels loop", "serial loop", "enter data", "exit data",
	"parallel", "kernels", "serial", "loop", "data", "host_data", "cache", "atomic",
	"declare", "routine", "update", "wait", "init", "shutdown", "set",
}

// Allowed reports whether clause is valid on the construct.
func Allowed(s Sentinel, construct, clause string) bool {
	if s == SentinelCUF {
		return slices.Contains(cufClauses, clause)
	}
	list, ok := accClauses[construct]
	if !ok {
		// end directives take no clauses
		return false
	}
	return slices.Contains(list, clause)
}
