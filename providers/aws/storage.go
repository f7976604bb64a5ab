package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func s3Ops(cfg aws.Config) map[string]opFunc {
	api := s3.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListBuckets": func(ctx context.Context, params map[string]any) (any, error) {
			var in s3.ListBucketsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListBuckets(ctx, &in)
		},
	}
}

func sqsOps(cfg aws.Config) map[string]opFunc {
	api := sqs.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListQueues": func(ctx context.Context, params map[string]any) (any, error) {
			var in sqs.ListQueuesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListQueues(ctx, &in)
		},
		"GetQueueAttributes": func(ctx context.Context, params map[string]any) (any, error) {
			var in sqs.GetQueueAttributesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.GetQueueAttributes(ctx, &in)
		},
	}
}
