package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
)

func rdsOps(cfg aws.Config) map[string]opFunc {
	api := rds.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeDBInstances": func(ctx context.Context, params map[string]any) (any, error) {
			var in rds.DescribeDBInstancesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeDBInstances(ctx, &in)
		},
	}
}

func dynamodbOps(cfg aws.Config) map[string]opFunc {
	api := dynamodb.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListTables": func(ctx context.Context, params map[string]any) (any, error) {
			var in dynamodb.ListTablesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListTables(ctx, &in)
		},
		"DescribeTable": func(ctx context.Context, params map[string]any) (any, error) {
			var in dynamodb.DescribeTableInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeTable(ctx, &in)
		},
	}
}

func redshiftOps(cfg aws.Config) map[string]opFunc {
	api := redshift.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeClusters": func(ctx context.Context, params map[string]any) (any, error) {
			var in redshift.DescribeClustersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeClusters(ctx, &in)
		},
	}
}

func memorydbOps(cfg aws.Config) map[string]opFunc {
	api := memorydb.NewFromConfig(cfg)
	return map[string]opFunc{
		"DescribeClusters": func(ctx context.Context, params map[string]any) (any, error) {
			var in memorydb.DescribeClustersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeClusters(ctx, &in)
		},
	}
}
