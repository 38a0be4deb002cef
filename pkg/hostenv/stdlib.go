package hostenv

import (
	"fmt"
	"io"

	"github.com/cxleb/luna/pkg/types"
	"github.com/cxleb/luna/pkg/vm"
)

// StandardLibrary returns the built-in print/assert host routines
// spec §1 calls out as an external collaborator. Grounded in
// original_source/src/runtime/builtins.cpp: printing is monomorphic
// by static type (print_int/print_number/print_string/print_bool)
// rather than one generic print, because the VM has already erased
// every value's type to the opcode that produced it — by the time a
// host routine reads a register, there is no runtime tag left to
// dispatch on.
func StandardLibrary() []HostFunc {
	return []HostFunc{
		{
			Name:   "print_int",
			Params: []*types.Type{types.IntegerType()},
			Invoke: func(w io.Writer, args []vm.Value) {
				fmt.Fprintln(w, args[0].Int)
			},
		},
		{
			Name:   "print_number",
			Params: []*types.Type{types.NumberType()},
			Invoke: func(w io.Writer, args []vm.Value) {
				fmt.Fprintln(w, args[0].Number)
			},
		},
		{
			Name:   "print_string",
			Params: []*types.Type{types.StringType()},
			Invoke: func(w io.Writer, args []vm.Value) {
				fmt.Fprintln(w, args[0].Obj.Str)
			},
		},
		{
			Name:   "print_bool",
			Params: []*types.Type{types.BoolType()},
			Invoke: func(w io.Writer, args []vm.Value) {
				fmt.Fprintln(w, args[0].Int != 0)
			},
		},
		{
			Name:   "assert",
			Params: []*types.Type{types.BoolType()},
			Invoke: func(w io.Writer, args []vm.Value) {
				if args[0].Int == 0 {
					panic(vm.AssertionFailed{Msg: "assertion failed"})
				}
			},
		},
	}
}
