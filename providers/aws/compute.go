package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

func ec2Ops(cfg aws.Config) map[string]opFunc {
	api := ec2.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeInstances": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeInstancesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeInstances(ctx, &in)
		},
		"DescribeVolumes": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeVolumesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeVolumes(ctx, &in)
		},
		"DescribeSecurityGroups": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeSecurityGroupsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeSecurityGroups(ctx, &in)
		},
		"DescribeSnapshots": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeSnapshotsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeSnapshots(ctx, &in)
		},
		"DescribeVpcs": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeVpcsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeVpcs(ctx, &in)
		},
		"DescribeSubnets": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeSubnetsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeSubnets(ctx, &in)
		},
		"DescribeLaunchTemplates": func(ctx context.Context, params map[string]any) (any, error) {
			var in ec2.DescribeLaunchTemplatesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeLaunchTemplates(ctx, &in)
		},
	}
}

func autoscalingOps(cfg aws.Config) map[string]opFunc {
	api := autoscaling.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeAutoScalingGroups": func(ctx context.Context, params map[string]any) (any, error) {
			var in autoscaling.DescribeAutoScalingGroupsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeAutoScalingGroups(ctx, &in)
		},
	}
}

func lambdaOps(cfg aws.Config) map[string]opFunc {
	api := lambda.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListFunctions": func(ctx context.Context, params map[string]any) (any, error) {
			var in lambda.ListFunctionsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListFunctions(ctx, &in)
		},
	}
}
