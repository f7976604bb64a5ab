// Package evaluation runs named compliance checks against surveyed
// resources and records the outcomes on the resources themselves.
package evaluation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/survey"
)

var (
	// ErrUnknownCheck means a definition named a check nobody registered.
	ErrUnknownCheck = errors.New("unknown check")

	// ErrBadResult means a check produced output that is not a valid
	// pass/fail result.
	ErrBadResult = errors.New("check returned invalid result")
)

// Result is one check's verdict on one resource.
type Result struct {
	Message string
	Passed  bool
}

// CheckFunc evaluates one resource. Returning an error aborts the run;
// a failing check returns Passed false, not an error.
type CheckFunc func(resource *survey.Resource) (Result, error)

// Registry holds the named checks available per resource type.
type Registry struct {
	mu     sync.RWMutex
	checks map[registry.Ref]map[string]CheckFunc
}

// NewRegistry returns an empty check registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[registry.Ref]map[string]CheckFunc)}
}

// Register adds a named check for one resource type, replacing any
// earlier registration under the same name.
func (r *Registry) Register(ref registry.Ref, name string, fn CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.checks[ref]
	if !ok {
		byName = make(map[string]CheckFunc)
		r.checks[ref] = byName
	}
	byName[name] = fn
}

// Get looks up a check by resource type and name.
func (r *Registry) Get(ref registry.Ref, name string) (CheckFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.checks[ref][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownCheck, name, ref)
	}
	return fn, nil
}
