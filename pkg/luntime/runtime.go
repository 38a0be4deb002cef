// Package luntime wires the pipeline together: lexer → parser →
// checker → compiler → VM, the way pkg/driver composes Paserati's
// stages in the teacher repo (minus module loading and closures,
// which this spec's language does not have).
package luntime

import (
	"fmt"
	"io"

	"github.com/cxleb/luna/pkg/bytecode"
	"github.com/cxleb/luna/pkg/checker"
	"github.com/cxleb/luna/pkg/compiler"
	luerrors "github.com/cxleb/luna/pkg/errors"
	"github.com/cxleb/luna/pkg/hostenv"
	"github.com/cxleb/luna/pkg/parser"
	"github.com/cxleb/luna/pkg/vm"
)

// Debug flag for pipeline-stage tracing, same idiom as the teacher's
// own debugDriver in pkg/driver/driver.go.
const debugDriver = false

func debugPrintf(format string, args ...interface{}) {
	if debugDriver {
		fmt.Printf("[driver] "+format+"\n", args...)
	}
}

// Runtime is one end-to-end session: a fixed host environment plus
// whatever a single Run call compiles and executes against it.
type Runtime struct {
	env *hostenv.Environment
}

// New creates a Runtime whose host library writes to stdout.
func New(stdout io.Writer) *Runtime {
	return &Runtime{env: hostenv.New(stdout)}
}

// Run lexes, parses, checks, compiles, and executes source, invoking
// entry (conventionally "main") as the program's top-level function
// (spec §6.1).
func (r *Runtime) Run(source, entry string) (vm.Value, luerrors.Error) {
	mod, err := r.Compile(source)
	if err != nil {
		return vm.Value{}, err
	}
	debugPrintf("executing entry %q", entry)
	machine := vm.New(mod, r.env)
	val, runErr := machine.Run(entry)
	if runErr != nil {
		// A pipeline error carries a source location; a VM-level error
		// (bad entry point, stack overflow, or a failed assert) does
		// not — spec §4.5 treats contract violations and assertion
		// failures inside the VM as programmer errors, reported through
		// the same Error interface rather than crashing the process.
		return vm.Value{}, &luerrors.SemaError{Msg: runErr.Error()}
	}
	return val, nil
}

// Compile lexes, parses, checks, and lowers source into a bytecode
// module without executing it.
func (r *Runtime) Compile(source string) (*bytecode.Module, luerrors.Error) {
	debugPrintf("parsing %d bytes of source", len(source))
	astMod, perr := parser.ParseModule(source)
	if perr != nil {
		debugPrintf("parse failed: %v", perr)
		return nil, perr
	}

	debugPrintf("checking %d functions", len(astMod.Functions))
	if err := checker.Check(astMod, r.env.Signatures()); err != nil {
		debugPrintf("check failed: %v", err)
		return nil, err
	}

	debugPrintf("compiling to bytecode")
	return compiler.Compile(astMod, r.env.HostIndex()), nil
}

// DisplayError writes err against source the way the CLI does (spec
// §6.1, §7): `line:col: message`.
func DisplayError(w io.Writer, source string, err luerrors.Error) {
	luerrors.DisplayErrors(w, source, []luerrors.Error{err})
}
