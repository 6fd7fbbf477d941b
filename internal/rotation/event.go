package rotation

import "fmt"

// Event is the invocation contract supplied by the orchestrator for one
// rotation step.
type Event struct {
	// SecretID is the ARN or name of the secret being rotated.
	SecretID string `json:"SecretId"`

	// ClientRequestToken is the version ID of the secret version this
	// rotation attempt is correlated with.
	ClientRequestToken string `json:"ClientRequestToken"`

	// Step is the rotation step to perform.
	Step Step `json:"Step"`
}

// Step is one of the four steps of secret rotation.
type Step string

const (
	// StepCreate creates a new secret version. Secrets Manager labels the
	// new version with the staging label AWSPENDING.
	StepCreate Step = "createSecret"

	// StepSet would push the new credentials to the consuming service.
	// IAM issues the key material itself, so this step has nothing to do.
	StepSet Step = "setSecret"

	// StepTest authenticates with the AWSPENDING version of the secret.
	StepTest Step = "testSecret"

	// StepFinish moves the AWSCURRENT label from the previous version to
	// the version under rotation.
	StepFinish Step = "finishSecret"
)

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	*s = Step(text)
	switch *s {
	case StepCreate, StepSet, StepTest, StepFinish:
		return nil
	default:
		return fmt.Errorf("unknown step: %s", text)
	}
}

// Secrets Manager staging labels.
const (
	StageCurrent = "AWSCURRENT"
	StagePending = "AWSPENDING"
)
