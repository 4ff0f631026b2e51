// Package function implements the builtin scalar function registry:
// arithmetic helpers, string functions, date/time functions, and the
// handful of non-deterministic builtins (RAND, CURRENT_TIMESTAMP) that
// the planner must pin per-statement rather than per-row.
package function

import (
	"fmt"
	"strings"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// Definition describes one builtin function's signature and batched
// evaluator.
type Definition struct {
	Name       string
	MinArity   int
	MaxArity   int // -1 means variadic
	ReturnType func(args []kernel.Type) kernel.Type
	Eval       func(ctx *sql.Context, args []kernel.AnyArray, nrows int) (kernel.AnyArray, error)
}

// Registry is a lookup table from lowercase function name to Definition,
// analogous to the teacher's function.Registry used to resolve unresolved
// function-call expressions during analysis.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns a registry preloaded with every builtin in this
// package.
func NewRegistry() *Registry {
	r := &Registry{defs: map[string]*Definition{}}
	for _, d := range builtins {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a function definition.
func (r *Registry) Register(d *Definition) {
	r.defs[strings.ToLower(d.Name)] = d
}

// Lookup finds a function by name (case-insensitive), per SQL identifier
// rules for unquoted function names.
func (r *Registry) Lookup(name string) (*Definition, error) {
	d, ok := r.defs[strings.ToLower(name)]
	if !ok {
		return nil, sql.ErrUnsupportedFeature.New(fmt.Sprintf("function %s", name))
	}
	return d, nil
}

func (d *Definition) checkArity(n int) error {
	if n < d.MinArity || (d.MaxArity >= 0 && n > d.MaxArity) {
		return fmt.Errorf("function: %s: called with %d arguments", d.Name, n)
	}
	return nil
}
