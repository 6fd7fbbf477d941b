// Package awsapi constructs the AWS service clients the rotator depends on
// and defines the narrow interfaces that allow them to be faked in tests.
package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by the
// rotator. Declared here so tests can substitute a fake.
type SecretsManagerAPI interface {
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	UpdateSecretVersionStage(ctx context.Context, params *secretsmanager.UpdateSecretVersionStageInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretVersionStageOutput, error)
}

// IAMAPI is the subset of the IAM client used for access key lifecycle.
type IAMAPI interface {
	ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error)
	CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error)
	DeleteAccessKey(ctx context.Context, params *iam.DeleteAccessKeyInput, optFns ...func(*iam.Options)) (*iam.DeleteAccessKeyOutput, error)
}

// STSAPI is the identity-check surface used by live verification.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CallerIdentityFactory builds an STS client authenticated as a candidate
// access key, so a credential can be verified before it is promoted.
type CallerIdentityFactory func(accessKeyID, secretAccessKey string) STSAPI

// Clients bundles the collaborators the rotator talks to.
type Clients struct {
	SecretsManager          SecretsManagerAPI
	IAM                     IAMAPI
	NewCallerIdentityClient CallerIdentityFactory
}

// Options configures client construction.
type Options struct {
	// Region for all clients. Empty uses the SDK default resolution chain.
	Region string

	// SecretsManagerEndpoint overrides the Secrets Manager endpoint, for
	// VPC endpoints or LocalStack.
	SecretsManagerEndpoint string
}

// New constructs real AWS clients from the default credential chain.
func New(ctx context.Context, opts Options) (*Clients, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var smOpts []func(*secretsmanager.Options)
	if opts.SecretsManagerEndpoint != "" {
		smOpts = append(smOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(opts.SecretsManagerEndpoint)
		})
	}

	return &Clients{
		SecretsManager: secretsmanager.NewFromConfig(cfg, smOpts...),
		IAM:            iam.NewFromConfig(cfg),
		NewCallerIdentityClient: func(accessKeyID, secretAccessKey string) STSAPI {
			candidate := cfg.Copy()
			candidate.Credentials = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")
			return sts.NewFromConfig(candidate)
		},
	}, nil
}
