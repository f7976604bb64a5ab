package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/scan"
)

// scriptedClient answers operations from a script keyed by operation
// name; repeated calls to the same operation consume entries in order.
type scriptedClient struct {
	service string
	script  map[string][]func(params map[string]any) fetch.Page
	served  map[string]int
}

func newScriptedClient(service string) *scriptedClient {
	return &scriptedClient{
		service: service,
		script:  make(map[string][]func(map[string]any) fetch.Page),
		served:  make(map[string]int),
	}
}

func (c *scriptedClient) on(op string, fn func(map[string]any) fetch.Page) {
	c.script[op] = append(c.script[op], fn)
}

func (c *scriptedClient) Service() string { return c.service }

func (c *scriptedClient) Invoke(_ context.Context, op string, params map[string]any) (fetch.Page, error) {
	entries := c.script[op]
	i := c.served[op]
	if i >= len(entries) {
		// reuse the last scripted response for per-item detail calls
		i = len(entries) - 1
	}
	if i < 0 {
		return nil, assert.AnError
	}
	c.served[op]++
	return entries[i](params), nil
}

func runScan(t *testing.T, client fetch.Client, cat *registry.Catalog, ref registry.Ref) *scan.Scheduler {
	t.Helper()
	engine := fetch.NewEngine()
	engine.StaggerDelay = 0
	engine.PageDelay = 0
	contexts := []*scan.Context{
		scan.NewContext("111122223333", "us-east-1", ref.Service, true, client),
	}
	s := scan.NewScheduler(cat, contexts, engine)
	RegisterPagers(s)
	_, err := s.Scan(context.Background(), []registry.Ref{ref})
	require.NoError(t, err)
	return s
}

func TestEC2InstancesFlattensReservations(t *testing.T) {
	client := newScriptedClient("ec2")
	client.on("DescribeInstances", func(map[string]any) fetch.Page {
		return fetch.Page{
			"Reservations": []any{
				map[string]any{
					"ReservationId": "r-1",
					"Instances": []any{
						map[string]any{"InstanceId": "i-1", "State": map[string]any{"Name": "running"}},
						map[string]any{"InstanceId": "i-2", "State": map[string]any{"Name": "stopped"}},
					},
				},
				map[string]any{
					"ReservationId": "r-2",
					"Instances": []any{
						map[string]any{"InstanceId": "i-3", "State": map[string]any{"Name": "running"}},
					},
				},
			},
		}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "ec2", Resource: "instances"})

	rt, err := s.Store().ResourceType("ec2", "instances")
	require.NoError(t, err)
	assert.Equal(t, 3, rt.Len(), "instances must be surveyed, not reservations")

	r, err := rt.Resource("i-2")
	require.NoError(t, err)
	vals, err := r.Resolve("State.Name")
	require.NoError(t, err)
	assert.Equal(t, "stopped", vals[0].Str())
}

func TestKMSKeysDescribesEachKey(t *testing.T) {
	client := newScriptedClient("kms")
	client.on("ListKeys", func(map[string]any) fetch.Page {
		return fetch.Page{"Keys": []any{
			map[string]any{"KeyId": "k-1"},
			map[string]any{"KeyId": "k-2"},
		}}
	})
	client.on("DescribeKey", func(params map[string]any) fetch.Page {
		id := params["KeyId"].(string)
		return fetch.Page{"KeyMetadata": map[string]any{
			"KeyId":      id,
			"KeyManager": "CUSTOMER",
			"Enabled":    true,
		}}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "kms", Resource: "keys"})

	r, err := s.Store().Resource("kms", "keys", "k-2")
	require.NoError(t, err)
	vals, err := r.Resolve("KeyManager")
	require.NoError(t, err)
	assert.Equal(t, "CUSTOMER", vals[0].Str())
	assert.Equal(t, 2, client.served["DescribeKey"])
}

func TestKMSKeyRotationRequiresKeys(t *testing.T) {
	client := newScriptedClient("kms")
	client.on("ListKeys", func(map[string]any) fetch.Page {
		return fetch.Page{"Keys": []any{
			map[string]any{"KeyId": "k-customer"},
			map[string]any{"KeyId": "k-aws"},
		}}
	})
	client.on("DescribeKey", func(params map[string]any) fetch.Page {
		id := params["KeyId"].(string)
		manager := "CUSTOMER"
		if id == "k-aws" {
			manager = "AWS"
		}
		return fetch.Page{"KeyMetadata": map[string]any{"KeyId": id, "KeyManager": manager}}
	})
	client.on("GetKeyRotationStatus", func(map[string]any) fetch.Page {
		return fetch.Page{"KeyRotationEnabled": true}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "kms", Resource: "key_rotation"})

	// managed keys are skipped, customer keys surveyed
	rt, err := s.Store().ResourceType("kms", "key_rotation")
	require.NoError(t, err)
	assert.Equal(t, 1, rt.Len())
	r, err := rt.Resource("k-customer")
	require.NoError(t, err)
	vals, err := r.Resolve("KeyRotationEnabled")
	require.NoError(t, err)
	assert.True(t, vals[0].Bool())

	// the dependency was fetched through the same scan
	_, err = s.Store().Resource("kms", "keys", "k-aws")
	require.NoError(t, err)
}

func TestRoute53RecordSetsWalksZones(t *testing.T) {
	client := newScriptedClient("route53")
	client.on("ListHostedZones", func(map[string]any) fetch.Page {
		return fetch.Page{"HostedZones": []any{
			map[string]any{"Id": "/hostedzone/Z1", "Name": "example.com."},
		}}
	})
	client.on("ListResourceRecordSets", func(params map[string]any) fetch.Page {
		if params["StartRecordName"] == nil {
			return fetch.Page{
				"ResourceRecordSets": []any{
					map[string]any{"Name": "a.example.com.", "Type": "A"},
				},
				"IsTruncated":    true,
				"NextRecordName": "b.example.com.",
				"NextRecordType": "CNAME",
			}
		}
		return fetch.Page{
			"ResourceRecordSets": []any{
				map[string]any{"Name": "b.example.com.", "Type": "CNAME"},
			},
			"IsTruncated": false,
		}
	})

	// zone listing and record walking share the route53 service client
	cat := registry.Builtin()
	s := runScan(t, client, cat, registry.Ref{Service: "route53", Resource: "record_sets"})

	rt, err := s.Store().ResourceType("route53", "record_sets")
	require.NoError(t, err)
	assert.Equal(t, 2, rt.Len())

	r, err := rt.Resource("b.example.com.")
	require.NoError(t, err)
	vals, err := r.Resolve("HostedZoneId")
	require.NoError(t, err)
	assert.Equal(t, "Z1", vals[0].Str())
}

func TestDynamoDBTablesDescribed(t *testing.T) {
	client := newScriptedClient("dynamodb")
	client.on("ListTables", func(params map[string]any) fetch.Page {
		if params["ExclusiveStartTableName"] == nil {
			return fetch.Page{
				"TableNames":             []any{"orders"},
				"LastEvaluatedTableName": "orders",
			}
		}
		return fetch.Page{"TableNames": []any{"users"}}
	})
	client.on("DescribeTable", func(params map[string]any) fetch.Page {
		name := params["TableName"].(string)
		return fetch.Page{"Table": map[string]any{
			"TableName":   name,
			"TableStatus": "ACTIVE",
		}}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "dynamodb", Resource: "tables"})

	rt, err := s.Store().ResourceType("dynamodb", "tables")
	require.NoError(t, err)
	assert.Equal(t, 2, rt.Len())
	for _, id := range []string{"orders", "users"} {
		_, err := rt.Resource(id)
		assert.NoError(t, err, id)
	}
}

func TestSQSQueuesCarryAttributes(t *testing.T) {
	client := newScriptedClient("sqs")
	client.on("ListQueues", func(map[string]any) fetch.Page {
		return fetch.Page{"QueueUrls": []any{"https://sqs.example/q1"}}
	})
	client.on("GetQueueAttributes", func(map[string]any) fetch.Page {
		return fetch.Page{"Attributes": map[string]any{"VisibilityTimeout": "30"}}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "sqs", Resource: "queues"})

	r, err := s.Store().Resource("sqs", "queues", "https://sqs.example/q1")
	require.NoError(t, err)
	vals, err := r.Resolve("Attributes.VisibilityTimeout")
	require.NoError(t, err)
	assert.Equal(t, "30", vals[0].Str())
}

func TestEKSClustersDescribed(t *testing.T) {
	client := newScriptedClient("eks")
	client.on("ListClusters", func(map[string]any) fetch.Page {
		return fetch.Page{"Clusters": []any{"blue", "green"}}
	})
	client.on("DescribeCluster", func(params map[string]any) fetch.Page {
		return fetch.Page{"Cluster": map[string]any{
			"Name":    params["Name"],
			"Version": "1.31",
		}}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "eks", Resource: "clusters"})

	rt, err := s.Store().ResourceType("eks", "clusters")
	require.NoError(t, err)
	assert.Equal(t, 2, rt.Len())
}

func TestECSClustersFanOut(t *testing.T) {
	client := newScriptedClient("ecs")
	client.on("ListClusters", func(map[string]any) fetch.Page {
		return fetch.Page{"ClusterArns": []any{"arn:c1", "arn:c2"}}
	})
	client.on("DescribeClusters", func(params map[string]any) fetch.Page {
		arns, _ := params["Clusters"].([]string)
		out := make([]any, 0, len(arns))
		for _, arn := range arns {
			out = append(out, map[string]any{"ClusterArn": arn, "Status": "ACTIVE"})
		}
		return fetch.Page{"Clusters": out}
	})

	s := runScan(t, client, registry.Builtin(), registry.Ref{Service: "ecs", Resource: "clusters"})

	rt, err := s.Store().ResourceType("ecs", "clusters")
	require.NoError(t, err)
	assert.Equal(t, 2, rt.Len())
}
