package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResource(id string, data map[string]any) *Resource {
	return NewResource(id, "ec2", "instances", ContextInfo{
		Name:      "prod:us-east-1:ec2",
		AccountID: "123456789012",
		Region:    "us-east-1",
		Service:   "ec2",
	}, FromAny(data))
}

func testFleet() []*Resource {
	return []*Resource{
		testResource("i-1", map[string]any{
			"state": "running",
			"size":  float64(8),
			"tags": []any{
				map[string]any{"key": "env", "value": "prod"},
			},
		}),
		testResource("i-2", map[string]any{
			"state": "stopped",
			"size":  float64(2),
			"tags": []any{
				map[string]any{"key": "env", "value": "dev"},
			},
		}),
		testResource("i-3", map[string]any{
			"state": "running",
			"size":  float64(16),
		}),
	}
}

func ids(t *testing.T, c *Cursor) []string {
	t.Helper()
	var out []string
	for c.Next() {
		out = append(out, c.Resource().ID)
	}
	require.NoError(t, c.Err())
	return out
}

func TestCursorIteration(t *testing.T) {
	c := SliceCursor(testFleet())
	assert.Equal(t, []string{"i-1", "i-2", "i-3"}, ids(t, c))

	// exhausted cursors stay exhausted
	assert.False(t, c.Next())
	assert.Nil(t, c.Resource())
}

func TestWhereEq(t *testing.T) {
	c := SliceCursor(testFleet()).Where("state", OpEq, "running")
	assert.Equal(t, []string{"i-1", "i-3"}, ids(t, c))
}

func TestWhereOperators(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		op    Op
		value any
		want  []string
	}{
		{"ne", "state", OpNe, "running", []string{"i-2"}},
		{"gt", "size", OpGt, 4, []string{"i-1", "i-3"}},
		{"lt", "size", OpLt, 4, []string{"i-2"}},
		{"contains substring", "state", OpContains, "run", []string{"i-1", "i-3"}},
		{"startswith", "id", OpStartsWith, "i-", []string{"i-1", "i-2", "i-3"}},
		{"endswith", "id", OpEndsWith, "2", []string{"i-2"}},
		{"wildcard path", "tags.*.value", OpEq, "prod", []string{"i-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := SliceCursor(testFleet()).Where(tt.path, tt.op, tt.value)
			assert.Equal(t, tt.want, ids(t, c))
		})
	}
}

func TestWhereNotComplementsWhere(t *testing.T) {
	// i-3 has no tags, so it fails to resolve in Where and matches WhereNot.
	matched := ids(t, SliceCursor(testFleet()).Where("tags.*.value", OpEq, "prod"))
	rest := ids(t, SliceCursor(testFleet()).WhereNot("tags.*.value", OpEq, "prod"))
	assert.Equal(t, []string{"i-1"}, matched)
	assert.Equal(t, []string{"i-2", "i-3"}, rest)
	assert.Len(t, append(matched, rest...), len(testFleet()))
}

func TestWhereTypeMismatchIsFalse(t *testing.T) {
	// comparing a number path against a string must not panic or match
	c := SliceCursor(testFleet()).Where("size", OpGt, "big")
	assert.Empty(t, ids(t, c))

	c = SliceCursor(testFleet()).Where("state", OpLt, 10)
	assert.Empty(t, ids(t, c))
}

func TestWhereUnknownOperator(t *testing.T) {
	c := SliceCursor(testFleet()).Where("state", Op("like"), "run%")
	assert.False(t, c.Next())
	require.Error(t, c.Err())
	assert.ErrorIs(t, c.Err(), ErrQuery)
}

func TestWhereChaining(t *testing.T) {
	c := SliceCursor(testFleet()).
		Where("state", OpEq, "running").
		Where("size", OpGt, 10)
	assert.Equal(t, []string{"i-3"}, ids(t, c))
}

func TestCursorSliceAndCount(t *testing.T) {
	got, err := SliceCursor(testFleet()).Slice()
	require.NoError(t, err)
	assert.Len(t, got, 3)

	n, err := SliceCursor(testFleet()).Where("state", OpEq, "stopped").Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
