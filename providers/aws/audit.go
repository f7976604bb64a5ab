package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

func cloudtrailOps(cfg aws.Config) map[string]opFunc {
	api := cloudtrail.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeTrails": func(ctx context.Context, params map[string]any) (any, error) {
			var in cloudtrail.DescribeTrailsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeTrails(ctx, &in)
		},
	}
}

func cloudwatchlogsOps(cfg aws.Config) map[string]opFunc {
	api := cloudwatchlogs.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeLogGroups": func(ctx context.Context, params map[string]any) (any, error) {
			var in cloudwatchlogs.DescribeLogGroupsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeLogGroups(ctx, &in)
		},
	}
}
