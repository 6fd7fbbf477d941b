package rotation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Newly minted access keys can take a few seconds to become usable at IAM,
// so authentication failures are retried on a fixed cadence. The budget is
// exactly five total attempts.
const (
	verifyMaxAttempts = 5
	verifyRetryDelay  = 5 * time.Second
)

// SleepFunc waits for the given duration or until the context is done.
// Injectable so tests can run the retry path without wall-clock delay.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VerifyCredential authenticates with a candidate credential and returns
// the identity it resolves to, applying the full retry budget. Used by
// the standalone check command; rotation steps go through checkAccessKey
// so failures carry the secret and token.
func (r *Rotator) VerifyCredential(ctx context.Context, accessKeyID, secretAccessKey string) (string, error) {
	return r.checkAccessKey(ctx, "", "", accessKeyID, secretAccessKey)
}

// checkAccessKey attempts to authenticate with the candidate credential
// and returns the identity it resolves to. Only authentication failures
// are retried; an identity mismatch is the caller's decision, and a
// malformed principal ARN is a hard failure.
func (r *Rotator) checkAccessKey(ctx context.Context, secretID, token, accessKeyID, secretAccessKey string) (string, error) {
	client := r.newSTS(accessKeyID, secretAccessKey)

	var lastErr error
	for attempt := 1; attempt <= verifyMaxAttempts; attempt++ {
		out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err == nil {
			r.metrics.RecordVerificationAttempt("success")
			return identityFromARN(aws.ToString(out.Arn))
		}

		lastErr = err
		r.metrics.RecordVerificationAttempt("failure")
		r.logger.Warn("Failed to authenticate with access key (attempt %d of %d): %v",
			attempt, verifyMaxAttempts, err)

		if attempt < verifyMaxAttempts {
			if err := r.sleep(ctx, verifyRetryDelay); err != nil {
				return "", err
			}
		}
	}

	return "", VerificationExhaustedError{
		SecretID: secretID,
		Token:    token,
		Attempts: verifyMaxAttempts,
		LastErr:  lastErr,
	}
}

// identityFromARN extracts the trailing identity segment from a principal
// ARN such as arn:aws:iam::123456789012:user/ses-smtp-user.
func identityFromARN(arn string) (string, error) {
	idx := strings.LastIndex(arn, "/")
	if idx < 0 || idx == len(arn)-1 {
		return "", fmt.Errorf("caller identity ARN %q has no identity segment", arn)
	}
	return arn[idx+1:], nil
}
