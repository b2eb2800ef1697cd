// Package registry holds the process-wide association between enforced types
// and their audit specifications, and performs the definition-time compliance
// check: every declared operation must carry a specification, and a type
// extending another may reuse but never alter an inherited one.
//
// The registry is populated during startup and finalized once; after
// Finalize it is read-only. On configuration reload the whole registry is
// rebuilt from scratch rather than mutated in place.
package registry

import (
	"fmt"
	"sort"

	"auditflow/internal/pipeline"
)

// DefinitionError is fatal: the process must not run with an enforced type
// whose audit contract is missing or altered. It is returned from Finalize
// and callers are expected to treat it as a startup hard stop.
type DefinitionError struct {
	Type      string
	Operation string
	Reason    string
}

func (e *DefinitionError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("audit definition error in type %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("audit definition error in %s.%s: %s", e.Type, e.Operation, e.Reason)
}

// Definition declares one enforced type: its public operations and the
// specification bound to each. Extends names a previously defined type whose
// bindings are inherited. Listing an operation without a spec in Specs is
// how a missing specification is represented, and it is rejected.
type Definition struct {
	Type       string
	Extends    string
	Operations []string
	Specs      map[string]pipeline.Set
}

// Bindings is the finalized operation→specification map of one type.
// Immutable after Finalize.
type Bindings map[string]pipeline.Set

// Registry accumulates definitions and checks them in declaration order.
type Registry struct {
	defs      []Definition
	finalized map[string]Bindings
}

func New() *Registry {
	return &Registry{}
}

// Add records a definition for the startup check. Declaration order matters:
// a type must be added after the type it extends.
func (r *Registry) Add(def Definition) {
	r.defs = append(r.defs, def)
}

// Finalize runs the definition-time compliance check over every added
// definition. The outcome is binary per type: either its effective bindings
// are finalized, or the whole pass fails with a DefinitionError and the
// registry stays unusable. There is no partially defined state.
func (r *Registry) Finalize() error {
	finalized := make(map[string]Bindings, len(r.defs))

	for _, def := range r.defs {
		if def.Type == "" {
			return &DefinitionError{Type: def.Type, Reason: "definition has no type name"}
		}
		if _, dup := finalized[def.Type]; dup {
			return &DefinitionError{Type: def.Type, Reason: "type defined twice"}
		}

		var inherited Bindings
		if def.Extends != "" {
			parent, ok := finalized[def.Extends]
			if !ok {
				return &DefinitionError{
					Type:   def.Type,
					Reason: fmt.Sprintf("extends unknown type %q (parents must be defined first)", def.Extends),
				}
			}
			inherited = parent
		}

		// Every directly declared operation needs a bound spec. An
		// unaudited security operation must never exist, so a miss is a
		// hard stop rather than a warning.
		for _, op := range def.Operations {
			spec, ok := def.Specs[op]
			if !ok || spec.IsZero() {
				return &DefinitionError{
					Type:      def.Type,
					Operation: op,
					Reason:    "operation has no bound audit specification",
				}
			}
		}
		for op := range def.Specs {
			if !containsOp(def.Operations, op) {
				return &DefinitionError{
					Type:      def.Type,
					Operation: op,
					Reason:    "specification bound to undeclared operation",
				}
			}
		}

		// Merge inherited bindings with this type's own. An operation
		// present in both must carry a structurally identical spec:
		// a caller holding the base type relies on identical audit
		// guarantees regardless of concrete subtype.
		effective := make(Bindings, len(inherited)+len(def.Specs))
		for op, spec := range inherited {
			effective[op] = spec
		}
		for op, spec := range def.Specs {
			if parentSpec, overlaps := inherited[op]; overlaps && !parentSpec.Equal(spec) {
				return &DefinitionError{
					Type:      def.Type,
					Operation: op,
					Reason:    fmt.Sprintf("override alters inherited specification (parent %s)", def.Extends),
				}
			}
			effective[op] = spec
		}

		finalized[def.Type] = effective
	}

	r.finalized = finalized
	return nil
}

// Bindings returns the finalized operation map for a type. It panics if the
// registry was never finalized, which is a programming error: guards must
// only be constructed after the startup pass succeeds.
func (r *Registry) Bindings(typeName string) (Bindings, bool) {
	if r.finalized == nil {
		panic("registry: Bindings called before Finalize")
	}
	b, ok := r.finalized[typeName]
	return b, ok
}

// Types returns the finalized type names, sorted for stable iteration.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.finalized))
	for name := range r.finalized {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsOp(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
