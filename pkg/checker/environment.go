package checker

import "github.com/cxleb/luna/pkg/types"

// scopeEnv is one entry in the checker's scope stack: a name→type map,
// plus a pointer to the enclosing scope. Function entry pushes a scope
// pre-populated with parameters; Block pushes/pops a scope; VarDecl
// inserts into the top scope (spec §4.3).
type scopeEnv struct {
	symbols map[string]*types.Type
	outer   *scopeEnv
}

func newEnv(outer *scopeEnv) *scopeEnv {
	return &scopeEnv{symbols: make(map[string]*types.Type), outer: outer}
}

// defineLocal inserts name into this scope only. Returns false if name
// is already bound in this exact scope (rebinding within the same
// scope is an error, spec §4.3's VarDecl rule).
func (e *scopeEnv) defineLocal(name string, t *types.Type) bool {
	if _, exists := e.symbols[name]; exists {
		return false
	}
	e.symbols[name] = t
	return true
}

// resolve walks from the current scope outward.
func (e *scopeEnv) resolve(name string) (*types.Type, bool) {
	for s := e; s != nil; s = s.outer {
		if t, ok := s.symbols[name]; ok {
			return t, true
		}
	}
	return nil, false
}
