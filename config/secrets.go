package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// SecretSource fetches a JSON secret as flat key/value pairs
type SecretSource interface {
	SecretValues(ctx context.Context, id string) (map[string]string, error)
}

// secretsAPI is the subset of the Secrets Manager client used here
type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// VaultSource reads configuration from AWS Secrets Manager
type VaultSource struct {
	client secretsAPI
}

// NewVaultSource creates a secret source backed by Secrets Manager
func NewVaultSource(awsCfg aws.Config) *VaultSource {
	return &VaultSource{client: secretsmanager.NewFromConfig(awsCfg)}
}

// SecretValues fetches and decodes the secret. Both SecretString and SecretBinary
// payloads are accepted.
func (v *VaultSource) SecretValues(ctx context.Context, id string) (map[string]string, error) {
	out, err := v.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("secrets manager %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return nil, fmt.Errorf("secret %s has no payload", id)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode secret: %w", err)
	}

	values := make(map[string]string, len(decoded))
	for k, val := range decoded {
		switch t := val.(type) {
		case string:
			values[k] = t
		case nil:
		default:
			values[k] = fmt.Sprint(t)
		}
	}
	return values, nil
}
