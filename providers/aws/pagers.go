package aws

import (
	"context"
	"strings"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/scan"
	"github.com/yairfalse/kartta/survey"
)

// RegisterPagers installs the fetch strategies for resource types the
// generic paginate loop cannot express: nested listings, per-item
// detail calls, and responses that are bare identifier lists.
func RegisterPagers(s *scan.Scheduler) {
	s.RegisterPager(registry.Ref{Service: "ec2", Resource: "instances"}, ec2Instances)
	s.RegisterPager(registry.Ref{Service: "kms", Resource: "keys"}, kmsKeys)
	s.RegisterPager(registry.Ref{Service: "kms", Resource: "key_rotation"}, kmsKeyRotation)
	s.RegisterPager(registry.Ref{Service: "route53", Resource: "record_sets"}, route53RecordSets)
	s.RegisterPager(registry.Ref{Service: "iam", Resource: "policy_documents"}, iamPolicyDocuments)
	s.RegisterPager(registry.Ref{Service: "dynamodb", Resource: "tables"}, dynamodbTables)
	s.RegisterPager(registry.Ref{Service: "sqs", Resource: "queues"}, sqsQueues)
	s.RegisterPager(registry.Ref{Service: "ecs", Resource: "clusters"}, ecsClusters)
	s.RegisterPager(registry.Ref{Service: "eks", Resource: "clusters"}, eksClusters)
}

// dataString reads one string attribute out of a surveyed resource.
func dataString(r *survey.Resource, path string) string {
	vals, err := r.Resolve(path)
	if err != nil || len(vals) == 0 {
		return ""
	}
	return vals[0].Str()
}

// ec2Instances flattens the reservation envelope DescribeInstances
// wraps around instances.
func ec2Instances(ctx context.Context, call *scan.Call) error {
	pages, err := call.Engine.Paginate(ctx, call.Scan.Client, call.Request(nil))
	if err != nil {
		return err
	}
	for _, page := range pages {
		for _, reservation := range page.List("Reservations") {
			instances, _ := reservation["Instances"].([]any)
			for _, raw := range instances {
				instance, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				if err := call.Put(instance); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// kmsKeys lists key ids then describes each, surveying the full key
// metadata instead of the bare id ListKeys returns.
func kmsKeys(ctx context.Context, call *scan.Call) error {
	pages, err := call.Engine.Paginate(ctx, call.Scan.Client, call.Request(nil))
	if err != nil {
		return err
	}
	for _, page := range pages {
		for _, key := range page.List("Keys") {
			id, _ := key["KeyId"].(string)
			if id == "" {
				continue
			}
			detail, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
				Context:   call.Scan.Name,
				Operation: "DescribeKey",
				Params:    map[string]any{"KeyId": id},
			})
			if err != nil {
				return err
			}
			metadata, ok := detail["KeyMetadata"].(map[string]any)
			if !ok {
				continue
			}
			if err := call.Put(metadata); err != nil {
				return err
			}
		}
	}
	return nil
}

// kmsKeyRotation reads the surveyed keys and fetches each key's
// rotation status.
func kmsKeyRotation(ctx context.Context, call *scan.Call) error {
	keysRef := registry.Ref{Service: "kms", Resource: "keys"}
	if err := call.Require(ctx, keysRef); err != nil {
		return err
	}
	keys, err := call.Surveyed(keysRef)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key.Context.Region != call.Scan.Region {
			continue
		}
		// AWS managed keys reject rotation status lookups
		if dataString(key, "KeyManager") == "AWS" {
			continue
		}
		status, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
			Context:   call.Scan.Name,
			Operation: "GetKeyRotationStatus",
			Params:    map[string]any{"KeyId": key.ID},
		})
		if err != nil {
			return err
		}
		enabled, _ := status["KeyRotationEnabled"].(bool)
		record := map[string]any{
			"KeyId":              key.ID,
			"KeyRotationEnabled": enabled,
		}
		if err := call.Put(record); err != nil {
			return err
		}
	}
	return nil
}

// route53RecordSets walks each hosted zone's record sets. The API pages
// on a record name and type pair, which the generic marker loop cannot
// carry, so the loop lives here.
func route53RecordSets(ctx context.Context, call *scan.Call) error {
	zonesRef := registry.Ref{Service: "route53", Resource: "hosted_zones"}
	if err := call.Require(ctx, zonesRef); err != nil {
		return err
	}
	zones, err := call.Surveyed(zonesRef)
	if err != nil {
		return err
	}
	for _, zone := range zones {
		zoneID := strings.TrimPrefix(zone.ID, "/hostedzone/")
		params := map[string]any{"HostedZoneId": zoneID}
		for {
			page, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
				Context:   call.Scan.Name,
				Operation: call.Def.Operation,
				Params:    params,
			})
			if err != nil {
				return err
			}
			for _, record := range page.List("ResourceRecordSets") {
				record["HostedZoneId"] = zoneID
				if err := call.Put(record); err != nil {
					return err
				}
			}
			if !page.Truncated() {
				break
			}
			params = map[string]any{
				"HostedZoneId":    zoneID,
				"StartRecordName": page.Marker("NextRecordName"),
				"StartRecordType": page.Marker("NextRecordType"),
			}
		}
	}
	return nil
}

// iamPolicyDocuments fetches the default version document of every
// surveyed customer managed policy.
func iamPolicyDocuments(ctx context.Context, call *scan.Call) error {
	policiesRef := registry.Ref{Service: "iam", Resource: "policies"}
	if err := call.Require(ctx, policiesRef); err != nil {
		return err
	}
	policies, err := call.Surveyed(policiesRef)
	if err != nil {
		return err
	}
	for _, policy := range policies {
		version := dataString(policy, "DefaultVersionId")
		if version == "" {
			continue
		}
		page, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
			Context:   call.Scan.Name,
			Operation: call.Def.Operation,
			Params:    map[string]any{"PolicyArn": policy.ID, "VersionId": version},
		})
		if err != nil {
			return err
		}
		doc, ok := page["PolicyVersion"].(map[string]any)
		if !ok {
			continue
		}
		doc["Arn"] = policy.ID
		if err := call.Put(doc); err != nil {
			return err
		}
	}
	return nil
}

// dynamodbTables expands the bare table names ListTables returns into
// full table descriptions.
func dynamodbTables(ctx context.Context, call *scan.Call) error {
	pages, err := call.Engine.Paginate(ctx, call.Scan.Client, call.Request(nil))
	if err != nil {
		return err
	}
	for _, page := range pages {
		for _, name := range page.Strings("TableNames") {
			detail, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
				Context:   call.Scan.Name,
				Operation: "DescribeTable",
				Params:    map[string]any{"TableName": name},
			})
			if err != nil {
				return err
			}
			table, ok := detail["Table"].(map[string]any)
			if !ok {
				continue
			}
			if err := call.Put(table); err != nil {
				return err
			}
		}
	}
	return nil
}

// sqsQueues turns the bare queue URLs ListQueues returns into records
// carrying the queue's attributes.
func sqsQueues(ctx context.Context, call *scan.Call) error {
	pages, err := call.Engine.Paginate(ctx, call.Scan.Client, call.Request(nil))
	if err != nil {
		return err
	}
	for _, page := range pages {
		for _, url := range page.Strings("QueueUrls") {
			attrs, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
				Context:   call.Scan.Name,
				Operation: "GetQueueAttributes",
				Params: map[string]any{
					"QueueUrl":       url,
					"AttributeNames": []string{"All"},
				},
			})
			if err != nil {
				return err
			}
			record := map[string]any{"QueueUrl": url}
			if a, ok := attrs["Attributes"].(map[string]any); ok {
				record["Attributes"] = a
			}
			if err := call.Put(record); err != nil {
				return err
			}
		}
	}
	return nil
}

// ecsClusters lists cluster ARNs then describes them in batches.
func ecsClusters(ctx context.Context, call *scan.Call) error {
	pages, err := call.Engine.Paginate(ctx, call.Scan.Client, call.Request(nil))
	if err != nil {
		return err
	}
	var arns []string
	for _, page := range pages {
		arns = append(arns, page.Strings("ClusterArns")...)
	}
	if len(arns) == 0 {
		return nil
	}
	details, err := call.Engine.FanOut(ctx, call.Scan.Client, fetch.Request{
		Context:   call.Scan.Name,
		Operation: "DescribeClusters",
	}, "Clusters", arns, 0)
	if err != nil {
		return err
	}
	for _, page := range details {
		for _, cluster := range page.List("Clusters") {
			if err := call.Put(cluster); err != nil {
				return err
			}
		}
	}
	return nil
}

// eksClusters lists cluster names then describes each one.
func eksClusters(ctx context.Context, call *scan.Call) error {
	pages, err := call.Engine.Paginate(ctx, call.Scan.Client, call.Request(nil))
	if err != nil {
		return err
	}
	for _, page := range pages {
		for _, name := range page.Strings("Clusters") {
			detail, err := call.Engine.Invoke(ctx, call.Scan.Client, fetch.Request{
				Context:   call.Scan.Name,
				Operation: "DescribeCluster",
				Params:    map[string]any{"Name": name},
			})
			if err != nil {
				return err
			}
			cluster, ok := detail["Cluster"].(map[string]any)
			if !ok {
				continue
			}
			if err := call.Put(cluster); err != nil {
				return err
			}
		}
	}
	return nil
}
