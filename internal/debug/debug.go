// Package debug provides a minimal assertion helper for invariants that
// are this module's own responsibility to uphold (as opposed to contract
// violations by a caller, which are reported as errors).
package debug

import "fmt"

// Assert panics with a formatted message if cond is false. It is meant for
// invariants internal to a package, never for validating caller input -
// those should return an error instead.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
