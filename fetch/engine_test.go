package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient scripts responses per call and records every invocation.
type fakeClient struct {
	service string
	calls   []map[string]any
	ops     []string
	respond func(call int, params map[string]any) (Page, error)
}

func (f *fakeClient) Service() string {
	if f.service == "" {
		return "ec2"
	}
	return f.service
}

func (f *fakeClient) Invoke(_ context.Context, op string, params map[string]any) (Page, error) {
	call := len(f.calls)
	f.calls = append(f.calls, params)
	f.ops = append(f.ops, op)
	return f.respond(call, params)
}

func throttleErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "slow down"}
}

func testEngine() *Engine {
	e := NewEngine()
	e.StaggerDelay = 0
	e.PageDelay = 0
	return e
}

func TestPaginateSinglePage(t *testing.T) {
	c := &fakeClient{respond: func(int, map[string]any) (Page, error) {
		return Page{"Reservations": []any{}}, nil
	}}
	pages, err := testEngine().Paginate(context.Background(), c, Request{
		Context:   "prod:us-east-1:ec2",
		Operation: "DescribeInstances",
	})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, []string{"DescribeInstances"}, c.ops)
}

func TestPaginateFollowsNextToken(t *testing.T) {
	c := &fakeClient{respond: func(call int, params map[string]any) (Page, error) {
		switch call {
		case 0:
			assert.NotContains(t, params, "NextToken")
			return Page{"NextToken": "t1"}, nil
		case 1:
			assert.Equal(t, "t1", params["NextToken"])
			return Page{"NextToken": "t2"}, nil
		default:
			assert.Equal(t, "t2", params["NextToken"])
			return Page{}, nil
		}
	}}
	pages, err := testEngine().Paginate(context.Background(), c, Request{Operation: "ListKeys"})
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestPaginateExplicitMarker(t *testing.T) {
	c := &fakeClient{respond: func(call int, params map[string]any) (Page, error) {
		if call == 0 {
			return Page{"NextRecordName": "rec-b"}, nil
		}
		assert.Equal(t, "rec-b", params["NextRecordName"])
		return Page{}, nil
	}}
	pages, err := testEngine().Paginate(context.Background(), c, Request{
		Operation:  "ListResourceRecordSets",
		PageMarker: "NextRecordName",
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestPaginateLegacyTruncation(t *testing.T) {
	c := &fakeClient{respond: func(call int, params map[string]any) (Page, error) {
		if call == 0 {
			return Page{"IsTruncated": true, "Marker": "m1"}, nil
		}
		assert.Equal(t, "m1", params["Marker"])
		return Page{"IsTruncated": false}, nil
	}}
	pages, err := testEngine().Paginate(context.Background(), c, Request{Operation: "ListUsers"})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestPaginateRetriesThrottle(t *testing.T) {
	// throttled twice, succeeds on the third attempt: exactly three
	// invocations and a single returned page
	c := &fakeClient{respond: func(call int, _ map[string]any) (Page, error) {
		if call < 2 {
			return nil, throttleErr("Throttling")
		}
		return Page{"Buckets": []any{}}, nil
	}}
	pages, err := testEngine().Paginate(context.Background(), c, Request{
		Context:   "prod:us-east-1:s3",
		Operation: "ListBuckets",
	})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Len(t, c.calls, 3)
}

func TestPaginateThrottleExhausted(t *testing.T) {
	c := &fakeClient{respond: func(int, map[string]any) (Page, error) {
		return nil, throttleErr("RequestLimitExceeded")
	}}
	_, err := testEngine().Paginate(context.Background(), c, Request{
		Context:   "prod:eu-west-1:ec2",
		Operation: "DescribeVolumes",
	})
	require.Error(t, err)
	assert.Len(t, c.calls, DefaultMaxAttempts)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindThrottled, fe.Kind)
	assert.Equal(t, "DescribeVolumes", fe.Op)
	assert.Equal(t, "prod:eu-west-1:ec2", fe.Context)
	assert.Contains(t, err.Error(), "prod:eu-west-1:ec2")
	assert.Contains(t, err.Error(), "DescribeVolumes")
}

func TestPaginateNonThrottleFailsFast(t *testing.T) {
	boom := &smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}
	c := &fakeClient{respond: func(int, map[string]any) (Page, error) {
		return nil, boom
	}}
	_, err := testEngine().Paginate(context.Background(), c, Request{
		Context:   "prod:us-east-1:iam",
		Operation: "ListRoles",
	})
	require.Error(t, err)
	assert.Len(t, c.calls, 1, "non-throttle errors are not retried")

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindFailed, fe.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestClassifyInvalidParams(t *testing.T) {
	err := Classify("DescribeInstances", "ctx",
		&smithy.GenericAPIError{Code: "ValidationError", Message: "bad filter"})
	assert.Equal(t, KindInvalidParams, err.Kind)
}

func TestFanOutChunks(t *testing.T) {
	c := &fakeClient{respond: func(_ int, params map[string]any) (Page, error) {
		return Page{"got": params["InstanceIds"]}, nil
	}}
	ids := make([]string, 45)
	for i := range ids {
		ids[i] = "i-" + string(rune('a'+i%26))
	}
	pages, err := testEngine().FanOut(context.Background(), c, Request{
		Operation: "DescribeInstances",
	}, "InstanceIds", ids, 0)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Len(t, c.calls[0]["InstanceIds"], 20)
	assert.Len(t, c.calls[1]["InstanceIds"], 20)
	assert.Len(t, c.calls[2]["InstanceIds"], 5)
}

func TestFanOutEmptyIDs(t *testing.T) {
	c := &fakeClient{respond: func(int, map[string]any) (Page, error) {
		t.Fatal("no call expected")
		return nil, nil
	}}
	pages, err := testEngine().FanOut(context.Background(), c, Request{
		Operation: "DescribeInstances",
	}, "InstanceIds", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestFanOutDoesNotMutateRequestParams(t *testing.T) {
	c := &fakeClient{respond: func(int, map[string]any) (Page, error) {
		return Page{}, nil
	}}
	req := Request{
		Operation: "DescribeKey",
		Params:    map[string]any{"GrantTokens": []string{}},
	}
	_, err := testEngine().FanOut(context.Background(), c, req, "KeyId", []string{"k1", "k2"}, 1)
	require.NoError(t, err)
	assert.NotContains(t, req.Params, "KeyId")
	assert.Len(t, c.calls, 2)
}

func TestIsThrottleCodes(t *testing.T) {
	assert.True(t, IsThrottle(throttleErr("Throttling")))
	assert.True(t, IsThrottle(throttleErr("TooManyRequestsException")))
	assert.True(t, IsThrottle(throttleErr("SlowDown")))
	assert.False(t, IsThrottle(throttleErr("AccessDenied")))
	assert.False(t, IsThrottle(errors.New("plain")))
}

func TestPageHelpers(t *testing.T) {
	p := Page{
		"Names":       []any{"a", "b", float64(3)},
		"Items":       []any{map[string]any{"k": "v"}, "stray"},
		"NextToken":   "t",
		"IsTruncated": true,
	}
	assert.Equal(t, []string{"a", "b"}, p.Strings("Names"))
	assert.Equal(t, []map[string]any{{"k": "v"}}, p.List("Items"))
	assert.Equal(t, "t", p.Marker("NextToken"))
	assert.Equal(t, "", p.Marker("Absent"))
	assert.True(t, p.Truncated())
}
