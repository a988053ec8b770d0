// Package connectivity answers "is the API reachable right now?" at the moment
// an operation starts. Probes are synchronous and cheap to call repeatedly.
package connectivity

// Probe reports current network reachability.
type Probe interface {
	IsReachable() bool
}

// Static always reports the same answer. Useful in tests and for forcing
// offline mode.
type Static bool

func (s Static) IsReachable() bool { return bool(s) }

// Func adapts a plain function.
type Func func() bool

func (f Func) IsReachable() bool { return f() }
