package rotation

import "fmt"

// The rotation failure taxonomy. Every error carries the secret identifier
// and, where it applies, the request token so operators can correlate a
// failure with the orchestrator's rotation state.

// NotConfiguredError indicates the secret is not enabled for rotation.
type NotConfiguredError struct {
	SecretID string
}

func (e NotConfiguredError) Error() string {
	return fmt.Sprintf("secret %s is not enabled for rotation", e.SecretID)
}

// UnknownVersionError indicates the request token does not correspond to
// any version of the secret.
type UnknownVersionError struct {
	SecretID string
	Token    string
}

func (e UnknownVersionError) Error() string {
	return fmt.Sprintf("secret version %s has no stage for rotation of secret %s", e.Token, e.SecretID)
}

// InvalidStageError indicates the token's version carries neither
// AWSCURRENT nor AWSPENDING, so no legitimate rotation is in progress.
type InvalidStageError struct {
	SecretID string
	Token    string
}

func (e InvalidStageError) Error() string {
	return fmt.Sprintf("secret version %s not set as %s for rotation of secret %s", e.Token, StagePending, e.SecretID)
}

// UnknownStepError indicates an invalid step value from the orchestrator.
type UnknownStepError struct {
	SecretID string
	Step     string
}

func (e UnknownStepError) Error() string {
	return fmt.Sprintf("invalid rotation step %q for secret %s", e.Step, e.SecretID)
}

// SchemaViolationError indicates a fetched payload is missing a required
// field, which means the stored secret is corrupt.
type SchemaViolationError struct {
	SecretID string
	Field    string
	Detail   string
}

func (e SchemaViolationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("secret %s payload is missing required field %s", e.SecretID, e.Field)
	}
	return fmt.Sprintf("secret %s payload failed schema validation: %s", e.SecretID, e.Detail)
}

// VerificationFailedError indicates the candidate credential authenticated
// as the wrong identity. The resolved identity is kept for diagnosis.
type VerificationFailedError struct {
	SecretID         string
	Token            string
	ExpectedIdentity string
	ResolvedIdentity string
}

func (e VerificationFailedError) Error() string {
	return fmt.Sprintf("authenticated as %s (expected %s) for %s stage of version %s for secret %s",
		e.ResolvedIdentity, e.ExpectedIdentity, StagePending, e.Token, e.SecretID)
}

// VerificationExhaustedError indicates authentication never succeeded
// within the retry budget.
type VerificationExhaustedError struct {
	SecretID string
	Token    string
	Attempts int
	LastErr  error
}

func (e VerificationExhaustedError) Error() string {
	return fmt.Sprintf("unable to authenticate with the generated access key after %d attempts for secret %s version %s: %v",
		e.Attempts, e.SecretID, e.Token, e.LastErr)
}

func (e VerificationExhaustedError) Unwrap() error {
	return e.LastErr
}
