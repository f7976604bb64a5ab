package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kartta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
provider: aws
accounts:
  - name: prod
    profile: prod-readonly
    role: arn:aws:iam::111122223333:role/survey
    regions:
      - us-east-1
      - eu-west-1
services:
  - ec2
  - kms
resources:
  - ec2.instances
  - kms.keys
skip:
  - ec2.snapshots
checks: ./checks
storage_dir: /var/lib/kartta
daemon:
  interval: 1h
  metrics_addr: ":9090"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "aws", cfg.Provider)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "prod", cfg.Accounts[0].Name)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, cfg.Accounts[0].Regions)
	assert.Equal(t, []string{"ec2.instances", "kms.keys"}, cfg.Resources)
	assert.Equal(t, []string{"ec2.snapshots"}, cfg.Skip)
	assert.Equal(t, "1h", cfg.Daemon.Interval)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/kartta.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing version",
			content: "provider: aws\naccounts:\n  - name: a\n    regions: [us-east-1]\n",
			wantErr: "version is required",
		},
		{
			name:    "missing provider",
			content: "version: \"1.0\"\naccounts:\n  - name: a\n    regions: [us-east-1]\n",
			wantErr: "provider is required",
		},
		{
			name:    "no accounts",
			content: "version: \"1.0\"\nprovider: aws\n",
			wantErr: "account is required",
		},
		{
			name:    "account without regions",
			content: "version: \"1.0\"\nprovider: aws\naccounts:\n  - name: a\n",
			wantErr: "at least one region",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
