package survey

import "fmt"

// Cursor iterates a stream of resources lazily. A cursor is single use:
// once Next returns false it stays false, and Err reports whether the
// stream ended cleanly or on a bad query.
//
//	cur := store.Resources()
//	for cur.Next() {
//	    r := cur.Resource()
//	    ...
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor struct {
	next func() (*Resource, error)
	cur  *Resource
	err  error
	done bool
}

// NewCursor wraps a pull function. The function returns nil, nil when the
// stream is exhausted.
func NewCursor(next func() (*Resource, error)) *Cursor {
	return &Cursor{next: next}
}

// SliceCursor iterates a fixed slice of resources.
func SliceCursor(resources []*Resource) *Cursor {
	i := 0
	return NewCursor(func() (*Resource, error) {
		if i >= len(resources) {
			return nil, nil
		}
		r := resources[i]
		i++
		return r, nil
	})
}

// errCursor is exhausted immediately and reports err.
func errCursor(err error) *Cursor {
	c := &Cursor{err: err, done: true}
	c.next = func() (*Resource, error) { return nil, err }
	return c
}

// Next advances the cursor. It returns false when the stream is exhausted
// or an error occurred; check Err after the loop.
func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	r, err := c.next()
	if err != nil {
		c.err = err
		c.done = true
		c.cur = nil
		return false
	}
	if r == nil {
		c.done = true
		c.cur = nil
		return false
	}
	c.cur = r
	return true
}

// Resource returns the resource the last successful Next advanced to.
func (c *Cursor) Resource() *Resource {
	return c.cur
}

// Err returns the first error the cursor hit, or nil on clean exhaustion.
func (c *Cursor) Err() error {
	return c.err
}

// Slice drains the cursor into a slice.
func (c *Cursor) Slice() ([]*Resource, error) {
	var out []*Resource
	for c.Next() {
		out = append(out, c.Resource())
	}
	return out, c.Err()
}

// Count drains the cursor and returns the number of resources seen.
func (c *Cursor) Count() (int, error) {
	n := 0
	for c.Next() {
		n++
	}
	return n, c.Err()
}

// Where filters the stream to resources where at least one value resolved
// at path compares true against value under op. A resource whose path
// does not resolve is excluded, not an error; an unknown operator fails
// the whole cursor.
func (c *Cursor) Where(path string, op Op, value any) *Cursor {
	return c.filter(path, op, value, false)
}

// WhereNot filters the stream to resources where no value resolved at
// path compares true against value under op. It is the exact complement
// of Where over the same stream.
func (c *Cursor) WhereNot(path string, op Op, value any) *Cursor {
	return c.filter(path, op, value, true)
}

func (c *Cursor) filter(path string, op Op, value any, negate bool) *Cursor {
	if !knownOp(op) {
		return errCursor(fmt.Errorf("%w: unknown operator %q", ErrQuery, op))
	}
	want := FromAny(value)
	return NewCursor(func() (*Resource, error) {
		for c.Next() {
			r := c.Resource()
			if matchResource(r, path, op, want) != negate {
				return r, nil
			}
		}
		return nil, c.Err()
	})
}

// matchResource reports whether any value at path compares true. Paths
// that fail to resolve on this resource match nothing.
func matchResource(r *Resource, path string, op Op, want Value) bool {
	vals, err := r.Resolve(path)
	if err != nil {
		return false
	}
	for _, v := range vals {
		if compare(op, v, want) {
			return true
		}
	}
	return false
}
