package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

func iamOps(cfg aws.Config) map[string]opFunc {
	api := iam.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListUsers": func(ctx context.Context, params map[string]any) (any, error) {
			var in iam.ListUsersInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListUsers(ctx, &in)
		},
		"ListRoles": func(ctx context.Context, params map[string]any) (any, error) {
			var in iam.ListRolesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListRoles(ctx, &in)
		},
		"ListPolicies": func(ctx context.Context, params map[string]any) (any, error) {
			var in iam.ListPoliciesInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListPolicies(ctx, &in)
		},
		"GetPolicyVersion": func(ctx context.Context, params map[string]any) (any, error) {
			var in iam.GetPolicyVersionInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.GetPolicyVersion(ctx, &in)
		},
	}
}

func kmsOps(cfg aws.Config) map[string]opFunc {
	api := kms.NewFromConfig(cfg)
	return map[string]opFunc{
		"ListKeys": func(ctx context.Context, params map[string]any) (any, error) {
			var in kms.ListKeysInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.ListKeys(ctx, &in)
		},
		"DescribeKey": func(ctx context.Context, params map[string]any) (any, error) {
			var in kms.DescribeKeyInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.DescribeKey(ctx, &in)
		},
		"GetKeyRotationStatus": func(ctx context.Context, params map[string]any) (any, error) {
			var in kms.GetKeyRotationStatusInput
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return api.GetKeyRotationStatus(ctx, &in)
		},
	}
}
