package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yairfalse/kartta/scan"
	"github.com/yairfalse/kartta/telemetry"
)

// Account is one AWS account to survey: the credentials to reach it and
// the regions to cover. The first region listed is where the account's
// global services are fetched.
type Account struct {
	Name    string
	Profile string
	// Role is an ARN to assume after the profile's base credentials
	// resolve. Empty uses the profile directly.
	Role    string
	Regions []string
}

// resolveConfig loads credentials for one account in one region.
func resolveConfig(ctx context.Context, account Account, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if account.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(account.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading credentials for account %s: %w", account.Name, err)
	}
	if account.Role != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), account.Role))
	}
	return cfg, nil
}

// callerAccountID resolves the numeric account id behind the credentials.
func callerAccountID(ctx context.Context, cfg aws.Config) (string, error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolving caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// BuildContexts resolves credentials for every account and region and
// returns one scan context per (account, region, service). Credential
// failures abort the whole build; a survey with a silently missing
// account is worse than no survey.
func BuildContexts(ctx context.Context, accounts []Account, services []string) ([]*scan.Context, error) {
	log := telemetry.NewLogger("aws-session")
	var out []*scan.Context
	for _, account := range accounts {
		for i, region := range account.Regions {
			cfg, err := resolveConfig(ctx, account, region)
			if err != nil {
				return nil, err
			}
			id, err := callerAccountID(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("account %s region %s: %w", account.Name, region, err)
			}
			for _, service := range services {
				client, err := NewClient(cfg, service)
				if err != nil {
					return nil, err
				}
				out = append(out, scan.NewContext(id, region, service, i == 0, client))
			}
			log.WithContext(ctx).Info().
				Str("account", account.Name).
				Str("account_id", id).
				Str("region", region).
				Int("services", len(services)).
				Msg("resolved scan contexts")
		}
	}
	return out, nil
}
