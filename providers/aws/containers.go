package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
)

func ecsOps(cfg aws.Config) map[string]opFunc {
	api := ecs.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListClusters": func(ctx context.Context, params map[string]any) (any, error) {
			var in ecs.ListClustersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListClusters(ctx, &in)
		},
		"DescribeClusters": func(ctx context.Context, params map[string]any) (any, error) {
			var in ecs.DescribeClustersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeClusters(ctx, &in)
		},
	}
}

func eksOps(cfg aws.Config) map[string]opFunc {
	api := eks.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListClusters": func(ctx context.Context, params map[string]any) (any, error) {
			var in eks.ListClustersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListClusters(ctx, &in)
		},
		"DescribeCluster": func(ctx context.Context, params map[string]any) (any, error) {
			var in eks.DescribeClusterInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeCluster(ctx, &in)
		},
	}
}

func ecrOps(cfg aws.Config) map[string]opFunc {
	api := ecr.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeRepositories": func(ctx context.Context, params map[string]any) (any, error) {
			var in ecr.DescribeRepositoriesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeRepositories(ctx, &in)
		},
	}
}
