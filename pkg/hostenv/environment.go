// Package hostenv implements the host-function registry the VM's
// trampoline calls into (spec §4.5, §6.3), plus the standard library
// named in spec §1's "built-in print/assert host library".
package hostenv

import (
	"fmt"
	"io"

	"github.com/cxleb/luna/pkg/checker"
	"github.com/cxleb/luna/pkg/types"
	"github.com/cxleb/luna/pkg/vm"
)

// HostFunc is one host routine: a name, the checker-facing signature
// used for arity/type checking (spec §4.3's Call rule), and the
// implementation the VM trampoline invokes.
type HostFunc struct {
	Name   string
	Params []*types.Type
	Invoke func(w io.Writer, args []vm.Value)
}

// Environment is the ordered set of host functions visible to a
// checked and compiled program. Order determines each function's
// stable host id (spec §4.4's CallHost host_id), so it must match
// between the checker's signature table and the compiler's
// hostIndex map — New builds both from the same slice to guarantee
// that.
type Environment struct {
	funcs []HostFunc
	byID  map[string]int
	out   io.Writer
}

// New builds an Environment writing host output to w.
func New(w io.Writer) *Environment {
	e := &Environment{out: w, byID: make(map[string]int)}
	for _, f := range StandardLibrary() {
		e.register(f)
	}
	return e
}

func (e *Environment) register(f HostFunc) {
	e.byID[f.Name] = len(e.funcs)
	e.funcs = append(e.funcs, f)
}

// Signatures returns the checker-facing host signature table (spec
// §4.3).
func (e *Environment) Signatures() map[string]checker.HostSignature {
	sigs := make(map[string]checker.HostSignature, len(e.funcs))
	for _, f := range e.funcs {
		sigs[f.Name] = checker.HostSignature{Params: f.Params}
	}
	return sigs
}

// HostIndex returns the name→id table the compiler needs to emit
// CallHost instructions (spec §4.4).
func (e *Environment) HostIndex() map[string]int {
	out := make(map[string]int, len(e.byID))
	for name, id := range e.byID {
		out[name] = id
	}
	return out
}

// Invoke implements vm.Environment: it dispatches to the host
// function registered at hostID with the pre-staged argument slice
// (spec §6.3).
func (e *Environment) Invoke(v *vm.VM, hostID int, args []vm.Value) {
	if hostID < 0 || hostID >= len(e.funcs) {
		panic(fmt.Sprintf("hostenv: invalid host id %d", hostID))
	}
	e.funcs[hostID].Invoke(e.out, args)
}
