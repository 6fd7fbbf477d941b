package rotation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/sesrotate/internal/awsapi"
)

// fakeSecretsManager models a secret's version/stage map and per-version
// values in memory.
type fakeSecretsManager struct {
	rotationEnabled bool
	versions        map[string][]string // version ID -> stage labels
	values          map[string]string   // version ID -> secret string

	putInputs  []*secretsmanager.PutSecretValueInput
	moveInputs []*secretsmanager.UpdateSecretVersionStageInput
}

func newFakeSecretsManager() *fakeSecretsManager {
	return &fakeSecretsManager{
		rotationEnabled: true,
		versions:        make(map[string][]string),
		values:          make(map[string]string),
	}
}

func (f *fakeSecretsManager) DescribeSecret(_ context.Context, params *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	stages := make(map[string][]string, len(f.versions))
	for version, labels := range f.versions {
		stages[version] = slices.Clone(labels)
	}
	return &secretsmanager.DescribeSecretOutput{
		ARN:                params.SecretId,
		RotationEnabled:    aws.Bool(f.rotationEnabled),
		VersionIdsToStages: stages,
	}, nil
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	notFound := &smtypes.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret value")}

	version := aws.ToString(params.VersionId)
	stage := aws.ToString(params.VersionStage)

	if version == "" {
		// Stage-only lookup.
		for v, labels := range f.versions {
			if slices.Contains(labels, stage) {
				version = v
				break
			}
		}
		if version == "" {
			return nil, notFound
		}
	} else if stage != "" && !slices.Contains(f.versions[version], stage) {
		return nil, notFound
	}

	value, ok := f.values[version]
	if !ok {
		return nil, notFound
	}
	return &secretsmanager.GetSecretValueOutput{
		ARN:           params.SecretId,
		VersionId:     aws.String(version),
		VersionStages: slices.Clone(f.versions[version]),
		SecretString:  aws.String(value),
	}, nil
}

func (f *fakeSecretsManager) PutSecretValue(_ context.Context, params *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.putInputs = append(f.putInputs, params)
	token := aws.ToString(params.ClientRequestToken)
	f.values[token] = aws.ToString(params.SecretString)
	f.versions[token] = slices.Clone(params.VersionStages)
	return &secretsmanager.PutSecretValueOutput{VersionId: params.ClientRequestToken}, nil
}

func (f *fakeSecretsManager) UpdateSecretVersionStage(_ context.Context, params *secretsmanager.UpdateSecretVersionStageInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretVersionStageOutput, error) {
	f.moveInputs = append(f.moveInputs, params)
	stage := aws.ToString(params.VersionStage)

	if params.RemoveFromVersionId != nil {
		from := aws.ToString(params.RemoveFromVersionId)
		f.versions[from] = slices.DeleteFunc(slices.Clone(f.versions[from]), func(s string) bool {
			return s == stage
		})
	}
	to := aws.ToString(params.MoveToVersionId)
	if !slices.Contains(f.versions[to], stage) {
		f.versions[to] = append(slices.Clone(f.versions[to]), stage)
	}
	return &secretsmanager.UpdateSecretVersionStageOutput{}, nil
}

// stagesOf returns the stage labels attached to a version.
func (f *fakeSecretsManager) stagesOf(version string) []string {
	return f.versions[version]
}

// fakeIAM models one user's access key set.
type fakeIAM struct {
	keyIDs      []string
	deletedKeys []string
	createCalls int
	nextSecret  string
}

func (f *fakeIAM) ListAccessKeys(_ context.Context, params *iam.ListAccessKeysInput, _ ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error) {
	meta := make([]iamtypes.AccessKeyMetadata, 0, len(f.keyIDs))
	for _, id := range f.keyIDs {
		meta = append(meta, iamtypes.AccessKeyMetadata{
			UserName:    params.UserName,
			AccessKeyId: aws.String(id),
			Status:      iamtypes.StatusTypeActive,
		})
	}
	return &iam.ListAccessKeysOutput{AccessKeyMetadata: meta}, nil
}

func (f *fakeIAM) CreateAccessKey(_ context.Context, params *iam.CreateAccessKeyInput, _ ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error) {
	f.createCalls++
	id := fmt.Sprintf("AKIANEW%d", f.createCalls)
	secret := f.nextSecret
	if secret == "" {
		secret = fmt.Sprintf("minted-secret-%d", f.createCalls)
	}
	f.keyIDs = append(f.keyIDs, id)
	return &iam.CreateAccessKeyOutput{
		AccessKey: &iamtypes.AccessKey{
			UserName:        params.UserName,
			AccessKeyId:     aws.String(id),
			SecretAccessKey: aws.String(secret),
			Status:          iamtypes.StatusTypeActive,
		},
	}, nil
}

func (f *fakeIAM) DeleteAccessKey(_ context.Context, params *iam.DeleteAccessKeyInput, _ ...func(*iam.Options)) (*iam.DeleteAccessKeyOutput, error) {
	id := aws.ToString(params.AccessKeyId)
	f.deletedKeys = append(f.deletedKeys, id)
	f.keyIDs = slices.DeleteFunc(f.keyIDs, func(k string) bool { return k == id })
	return &iam.DeleteAccessKeyOutput{}, nil
}

// fakeSTS authenticates after a configurable number of failures.
type fakeSTS struct {
	arn      string
	failures int // authentication errors to return before succeeding
	calls    int
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("InvalidClientTokenId: the security token included in the request is invalid")
	}
	return &sts.GetCallerIdentityOutput{
		Arn:     aws.String(f.arn),
		Account: aws.String("123456789012"),
	}, nil
}

// stsFactory records which credentials were used to build clients and
// hands back a shared fakeSTS.
type stsFactory struct {
	sts      *fakeSTS
	usedKeys [][2]string
}

func (s *stsFactory) factory() awsapi.CallerIdentityFactory {
	return func(accessKeyID, secretAccessKey string) awsapi.STSAPI {
		s.usedKeys = append(s.usedKeys, [2]string{accessKeyID, secretAccessKey})
		return s.sts
	}
}
