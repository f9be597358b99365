package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of the Secrets Manager client used by SecretsManagerStore.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// SecretsManagerStore keeps the credential blob as the string value of an AWS secret.
type SecretsManagerStore struct {
	api      SecretsAPI
	secretID string
}

// NewSecretsManagerStore creates a store for the named secret using the given client.
func NewSecretsManagerStore(api SecretsAPI, secretID string) *SecretsManagerStore {
	return &SecretsManagerStore{api: api, secretID: secretID}
}

// OpenSecretsManager loads the default AWS configuration for region and
// returns a store for secretID.
func OpenSecretsManager(ctx context.Context, region, secretID string) (*SecretsManagerStore, error) {
	if secretID == "" {
		return nil, errors.New("secret id is empty")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewSecretsManagerStore(secretsmanager.NewFromConfig(cfg), secretID), nil
}

// Get fetches and parses the secret.
func (s *SecretsManagerStore) Get(ctx context.Context) (*Credentials, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting secret %q: %w", ErrSecretUnavailable, s.secretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("%w: secret %q has no string value", ErrSecretUnavailable, s.secretID)
	}
	return Decode([]byte(aws.ToString(out.SecretString)))
}

// Put overwrites the secret with a new version holding creds.
func (s *SecretsManagerStore) Put(ctx context.Context, creds *Credentials) error {
	data, err := Encode(creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecretWriteFailed, err)
	}
	_, err = s.api.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(s.secretID),
		SecretString: aws.String(string(data)),
	})
	if err != nil {
		return fmt.Errorf("%w: putting secret %q: %w", ErrSecretWriteFailed, s.secretID, err)
	}
	return nil
}
