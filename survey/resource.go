package survey

import (
	"encoding/json"
	"sync"
)

// ContextInfo describes the scan context a resource was fetched under.
type ContextInfo struct {
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
	Region    string `json:"region"`
	Service   string `json:"service"`
}

// CheckResult records the outcome of one named evaluation check.
type CheckResult struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Passed  bool   `json:"passed"`
}

// Resource is one inventoried resource instance. The identity fields and
// data tree never change after construction; evaluation results are the
// only append point.
type Resource struct {
	ID      string
	Service string
	Type    string
	Context ContextInfo
	Data    Value

	mu      sync.Mutex
	results []CheckResult
}

// NewResource builds a resource instance from one raw record.
func NewResource(id, service, resourceType string, ctx ContextInfo, data Value) *Resource {
	return &Resource{
		ID:      id,
		Service: service,
		Type:    resourceType,
		Context: ctx,
		Data:    data,
	}
}

// AddResult appends one evaluation result.
func (r *Resource) AddResult(res CheckResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns a copy of the recorded evaluation results, in run order.
func (r *Resource) Results() []CheckResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CheckResult, len(r.results))
	copy(out, r.results)
	return out
}

// ResultFor returns the recorded result for a named check, if present.
func (r *Resource) ResultFor(name string) (CheckResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.Name == name {
			return res, true
		}
	}
	return CheckResult{}, false
}

// Passed reports whether every recorded check passed. A resource with no
// recorded results passes vacuously.
func (r *Resource) Passed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Record returns a flat representation of the resource: identity,
// pass/fail state, context descriptor, and the full data payload.
func (r *Resource) Record() map[string]any {
	return map[string]any{
		"id":       r.ID,
		"service":  r.Service,
		"resource": r.Type,
		"passed":   r.Passed(),
		"context": map[string]any{
			"name":       r.Context.Name,
			"account_id": r.Context.AccountID,
			"region":     r.Context.Region,
			"service":    r.Context.Service,
		},
		"data": r.Data.Interface(),
	}
}

// JSON returns the Record serialized as a JSON string.
func (r *Resource) JSON() (string, error) {
	b, err := json.Marshal(r.Record())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Resolve walks a dotted attribute path against the resource. The
// identity attributes id, service, and resource are addressable directly;
// every other path resolves into the data tree.
func (r *Resource) Resolve(path string) ([]Value, error) {
	switch path {
	case "id":
		return []Value{FromAny(r.ID)}, nil
	case "service":
		return []Value{FromAny(r.Service)}, nil
	case "resource":
		return []Value{FromAny(r.Type)}, nil
	case "passed":
		return []Value{FromAny(r.Passed())}, nil
	}
	return r.Data.Resolve(path)
}
