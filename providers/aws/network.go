package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/route53"
)

func route53Ops(cfg aws.Config) map[string]opFunc {
	api := route53.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListHostedZones": func(ctx context.Context, params map[string]any) (any, error) {
			var in route53.ListHostedZonesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListHostedZones(ctx, &in)
		},
		"ListResourceRecordSets": func(ctx context.Context, params map[string]any) (any, error) {
			var in route53.ListResourceRecordSetsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListResourceRecordSets(ctx, &in)
		},
	}
}

func elbv2Ops(cfg aws.Config) map[string]opFunc {
	api := elasticloadbalancingv2.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeLoadBalancers": func(ctx context.Context, params map[string]any) (any, error) {
			var in elasticloadbalancingv2.DescribeLoadBalancersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeLoadBalancers(ctx, &in)
		},
		"DescribeTargetGroups": func(ctx context.Context, params map[string]any) (any, error) {
			var in elasticloadbalancingv2.DescribeTargetGroupsInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeTargetGroups(ctx, &in)
		},
	}
}
