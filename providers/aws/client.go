// Package aws binds the fetch engine to AWS: it builds service clients
// that expose SDK calls as named operations, assembles scan contexts
// across accounts and regions, and carries the custom pagers for types
// the generic paginate loop cannot fetch.
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/yairfalse/kartta/fetch"
)

// opFunc runs one SDK operation and returns its raw output struct.
type opFunc func(ctx context.Context, params map[string]any) (any, error)

// Client dispatches named operations onto one AWS service. It satisfies
// the fetch engine's client contract by decoding loose parameters into
// the SDK input type and flattening the output back to a page.
type Client struct {
	service string
	ops     map[string]opFunc
}

func (c *Client) Service() string { return c.service }

// Invoke runs one named operation.
func (c *Client) Invoke(ctx context.Context, operation string, params map[string]any) (fetch.Page, error) {
	fn, ok := c.ops[operation]
	if !ok {
		return nil, fmt.Errorf("service %s has no operation %s", c.service, operation)
	}
	out, err := fn(ctx, params)
	if err != nil {
		return nil, err
	}
	return pageFrom(out)
}

// NewClient builds the dispatch client for one service against a
// resolved AWS config.
func NewClient(cfg aws.Config, service string) (*Client, error) {
	build, ok := clientBuilders[service]
	if !ok {
		return nil, fmt.Errorf("unsupported service %q", service)
	}
	return &Client{service: service, ops: build(cfg)}, nil
}

// Services returns the service names this provider can build clients
// for, unordered.
func Services() []string {
	out := make([]string, 0, len(clientBuilders))
	for name := range clientBuilders {
		out = append(out, name)
	}
	return out
}

var clientBuilders = map[string]func(aws.Config) map[string]opFunc{
	"autoscaling":    autoscalingOps,
	"cloudtrail":     cloudtrailOps,
	"cloudwatchlogs": cloudwatchlogsOps,
	"dynamodb":       dynamodbOps,
	"ec2":            ec2Ops,
	"ecr":            ecrOps,
	"ecs":            ecsOps,
	"eks":            eksOps,
	"elbv2":          elbv2Ops,
	"iam":            iamOps,
	"kms":            kmsOps,
	"lambda":         lambdaOps,
	"memorydb":       memorydbOps,
	"rds":            rdsOps,
	"redshift":       redshiftOps,
	"route53":        route53Ops,
	"s3":             s3Ops,
	"sqs":            sqsOps,
}

// decodeParams maps loose operation parameters onto an SDK input struct.
// The JSON round trip matches fields by wire name, so catalog params use
// the same names the AWS API documents.
func decodeParams(params map[string]any, input any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	if err := json.Unmarshal(raw, input); err != nil {
		return fmt.Errorf("binding params to %T: %w", input, err)
	}
	return nil
}

// pageFrom flattens an SDK output struct into a page keyed by wire
// field names.
func pageFrom(out any) (fetch.Page, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	var page fetch.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	delete(page, "ResultMetadata")
	return page, nil
}
