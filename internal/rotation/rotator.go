// Package rotation implements the four-step state machine that rotates an
// IAM access key pair and its derived SES SMTP password held in AWS
// Secrets Manager.
//
// The orchestrator (Secrets Manager's rotation scheduler or an operator)
// invokes one step at a time and may re-invoke any step after a partial
// failure, so every step is idempotent: it either resumes correctly or
// detects that it already completed. Each step re-reads fresh version and
// stage state; nothing is cached across invocations.
package rotation

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/sesrotate/internal/awsapi"
	dserrors "github.com/systmms/sesrotate/internal/errors"
	"github.com/systmms/sesrotate/internal/logging"
	"github.com/systmms/sesrotate/internal/secure"
	"github.com/systmms/sesrotate/pkg/smtppass"
)

// Rotator drives the rotation protocol. It holds handles to the secret
// store and identity provider plus the expected-identity configuration;
// there is no process-wide state.
type Rotator struct {
	sm       awsapi.SecretsManagerAPI
	iam      awsapi.IAMAPI
	newSTS   awsapi.CallerIdentityFactory
	username string
	logger   *logging.Logger
	metrics  *Metrics
	sleep    SleepFunc
}

// Option configures a Rotator.
type Option func(*Rotator)

// WithSleep replaces the inter-attempt sleep used by live verification.
func WithSleep(sleep SleepFunc) Option {
	return func(r *Rotator) { r.sleep = sleep }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(r *Rotator) { r.metrics = m }
}

// New creates a Rotator. username is the IAM user whose access keys are
// rotated and the identity every candidate credential must resolve to.
func New(clients *awsapi.Clients, username string, logger *logging.Logger, opts ...Option) *Rotator {
	r := &Rotator{
		sm:       clients.SecretsManager,
		iam:      clients.IAM,
		newSTS:   clients.NewCallerIdentityClient,
		username: username,
		logger:   logger,
		sleep:    defaultSleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs one rotation step after validating the secret's stage
// bookkeeping. A token whose version already carries AWSCURRENT is a
// successful no-op at every step: that rotation finished previously, even
// if the invocation reporting it back was interrupted.
func (r *Rotator) Execute(ctx context.Context, event Event) error {
	started := time.Now()
	r.metrics.RecordStepStarted(event.Step)

	err := r.execute(ctx, event)

	status := "success"
	if err != nil {
		status = "failure"
	}
	r.metrics.RecordStepCompleted(event.Step, status, time.Since(started).Seconds())
	return err
}

func (r *Rotator) execute(ctx context.Context, event Event) error {
	arn, token := event.SecretID, event.ClientRequestToken

	meta, err := r.sm.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return dserrors.ServiceError("secretsmanager", "DescribeSecret", err)
	}

	if meta.RotationEnabled == nil || !*meta.RotationEnabled {
		r.logger.Error("Secret %s is not enabled for rotation", arn)
		return NotConfiguredError{SecretID: arn}
	}

	stages, ok := meta.VersionIdsToStages[token]
	if !ok {
		r.logger.Error("Secret version %s has no stage for rotation of secret %s", token, arn)
		return UnknownVersionError{SecretID: arn, Token: token}
	}
	if slices.Contains(stages, StageCurrent) {
		r.logger.Info("Secret version %s already set as %s for secret %s", token, StageCurrent, arn)
		return nil
	}
	if !slices.Contains(stages, StagePending) {
		r.logger.Error("Secret version %s not set as %s for rotation of secret %s", token, StagePending, arn)
		return InvalidStageError{SecretID: arn, Token: token}
	}

	switch event.Step {
	case StepCreate:
		return r.createSecret(ctx, event)
	case StepSet:
		return r.setSecret(ctx, event)
	case StepTest:
		return r.testSecret(ctx, event)
	case StepFinish:
		return r.finishSecret(ctx, event)
	default:
		return UnknownStepError{SecretID: arn, Step: string(event.Step)}
	}
}

// createSecret ensures an AWSPENDING payload exists for the token. If one
// is already stored this is a no-op, so a re-invocation never mints a
// second key. Otherwise it enforces the single-active-key invariant by
// deleting every access key that does not match the AWSCURRENT payload,
// mints a new key, and stores the new payload.
func (r *Rotator) createSecret(ctx context.Context, event Event) error {
	arn, token := event.SecretID, event.ClientRequestToken

	current, err := getPayload(ctx, r.sm, arn, StageCurrent, "")
	if err != nil {
		return err
	}

	_, err = getPayload(ctx, r.sm, arn, StagePending, token)
	if err == nil {
		r.logger.Info("createSecret: Successfully retrieved secret for %s", arn)
		return nil
	}
	var notFound *smtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	// Delete any access keys besides the one the current secret points at.
	keys, err := r.iam.ListAccessKeys(ctx, &iam.ListAccessKeysInput{
		UserName: aws.String(r.username),
	})
	if err != nil {
		return dserrors.ServiceError("iam", "ListAccessKeys", err)
	}
	for _, key := range keys.AccessKeyMetadata {
		keyID := aws.ToString(key.AccessKeyId)
		if keyID == current.SMTPUsername {
			continue
		}
		if _, err := r.iam.DeleteAccessKey(ctx, &iam.DeleteAccessKeyInput{
			UserName:    aws.String(r.username),
			AccessKeyId: key.AccessKeyId,
		}); err != nil {
			return dserrors.ServiceError("iam", "DeleteAccessKey", err)
		}
		r.metrics.RecordStaleKeyDeleted()
		r.logger.Info("createSecret: Deleted previous access key %s for %s", keyID, arn)
	}

	created, err := r.iam.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{
		UserName: aws.String(r.username),
	})
	if err != nil {
		return dserrors.ServiceError("iam", "CreateAccessKey", err)
	}
	r.metrics.RecordKeyMinted()
	r.logger.Info("createSecret: Created access key for %s", r.username)

	// Hold the fresh key secret in locked memory until the payload is
	// stored.
	keySecret := secure.NewBuffer(aws.ToString(created.AccessKey.SecretAccessKey))
	defer keySecret.Destroy()

	locked, err := keySecret.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	pending := *current
	pending.SMTPUsername = aws.ToString(created.AccessKey.AccessKeyId)
	pending.SMTPSecret = string(locked.Bytes())
	pending.SMTPPassword = smtppass.Derive(string(locked.Bytes()), current.SMTPRegion)

	secretString, err := pending.marshal()
	if err != nil {
		return err
	}

	if _, err := r.sm.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:           aws.String(arn),
		ClientRequestToken: aws.String(token),
		SecretString:       aws.String(secretString),
		VersionStages:      []string{StagePending},
	}); err != nil {
		return dserrors.ServiceError("secretsmanager", "PutSecretValue", err)
	}

	r.logger.Info("createSecret: Successfully put secret for ARN %s and version %s", arn, token)
	return nil
}

// setSecret has nothing to push: IAM issues the key material itself, so
// the credential already exists at the provider by the time this step
// runs.
func (r *Rotator) setSecret(_ context.Context, event Event) error {
	r.logger.Info("setSecret: Nothing to set for secret %s, access keys are issued by IAM", event.SecretID)
	return nil
}

// testSecret authenticates with the AWSPENDING credential and requires it
// to resolve to the configured identity. A mismatch is reported with the
// identity that actually resolved; it is never retried.
func (r *Rotator) testSecret(ctx context.Context, event Event) error {
	arn, token := event.SecretID, event.ClientRequestToken

	r.logger.Debug("testSecret: fetching %s stage of version %s for secret %s", StagePending, token, arn)
	pending, err := getPayload(ctx, r.sm, arn, StagePending, token)
	if err != nil {
		return err
	}

	identity, err := r.checkAccessKey(ctx, arn, token, pending.SMTPUsername, pending.SMTPSecret)
	if err != nil {
		return err
	}

	if identity != r.username {
		r.logger.Error("testSecret: authenticated as %s for %s stage of version %s for secret %s",
			identity, StagePending, token, arn)
		return VerificationFailedError{
			SecretID:         arn,
			Token:            token,
			ExpectedIdentity: r.username,
			ResolvedIdentity: identity,
		}
	}

	r.logger.Info("testSecret: authenticated as %s for %s stage of version %s for secret %s",
		identity, StagePending, token, arn)
	return nil
}

// finishSecret promotes the token's version to AWSCURRENT, displacing
// whichever version held the label. This is the sole promotion point. The
// version map is re-read here rather than carried over from an earlier
// step: time may have passed, and a racing rotation may have already
// promoted this token.
func (r *Rotator) finishSecret(ctx context.Context, event Event) error {
	arn, token := event.SecretID, event.ClientRequestToken

	meta, err := r.sm.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return dserrors.ServiceError("secretsmanager", "DescribeSecret", err)
	}

	// There is exactly one AWSCURRENT version, or none on the first-ever
	// rotation.
	var currentVersion *string
	for version, stages := range meta.VersionIdsToStages {
		if !slices.Contains(stages, StageCurrent) {
			continue
		}
		if version == token {
			r.logger.Info("finishSecret: Version %s already marked as %s for %s", version, StageCurrent, arn)
			return nil
		}
		currentVersion = aws.String(version)
		break
	}

	if _, err := r.sm.UpdateSecretVersionStage(ctx, &secretsmanager.UpdateSecretVersionStageInput{
		SecretId:            aws.String(arn),
		VersionStage:        aws.String(StageCurrent),
		MoveToVersionId:     aws.String(token),
		RemoveFromVersionId: currentVersion,
	}); err != nil {
		return dserrors.ServiceError("secretsmanager", "UpdateSecretVersionStage", err)
	}

	r.logger.Info("finishSecret: Successfully set %s stage to version %s for secret %s", StageCurrent, token, arn)
	return nil
}

// Username returns the configured expected identity.
func (r *Rotator) Username() string {
	return r.username
}
