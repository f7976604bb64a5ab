package scan

import (
	"context"
	"fmt"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/survey"
)

// Pager is a custom fetch strategy for resource types the generic
// paginate-and-collect loop cannot express: nested listings, per-item
// detail calls, responses that are bare identifier lists.
type Pager func(ctx context.Context, call *Call) error

// Call is everything a pager needs to fetch one resource type in one
// scan context.
type Call struct {
	Scan   *Context
	Def    registry.Definition
	Engine *fetch.Engine
	Store  *survey.Store

	sched *Scheduler
}

// Request returns a fetch request for the call's operation, prefilled
// from the definition and scan context. params overlays the
// definition's static parameters.
func (c *Call) Request(params map[string]any) fetch.Request {
	merged := make(map[string]any, len(c.Def.Params)+len(params))
	for k, v := range c.Def.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return fetch.Request{
		Context:       c.Scan.Name,
		Operation:     c.Def.Operation,
		Params:        merged,
		PageMarker:    c.Def.PageMarker,
		RequestMarker: c.Def.RequestMarker,
	}
}

// Require runs the named resource types to completion before returning,
// so the pager can read their results out of the store.
func (c *Call) Require(ctx context.Context, refs ...registry.Ref) error {
	for _, ref := range refs {
		if err := c.sched.runUnit(ctx, ref); err != nil {
			return fmt.Errorf("dependency %s of %s: %w", ref, c.Def.Ref(), err)
		}
	}
	return nil
}

// Put conforms one raw record to the definition's schema and writes it
// to the store under the call's context.
func (c *Call) Put(record map[string]any) error {
	return c.sched.put(c.Scan, c.Def, record)
}

// Surveyed returns the already-fetched instances of ref belonging to
// this call's account. Call Require on ref first.
func (c *Call) Surveyed(ref registry.Ref) ([]*survey.Resource, error) {
	rt, err := c.Store.ResourceType(ref.Service, ref.Resource)
	if err != nil {
		return nil, err
	}
	var out []*survey.Resource
	cur := rt.Resources()
	for cur.Next() {
		r := cur.Resource()
		if r.Context.AccountID == c.Scan.AccountID {
			out = append(out, r)
		}
	}
	return out, cur.Err()
}
