package rotation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecoding(t *testing.T) {
	raw := `{
		"SecretId": "arn:aws:secretsmanager:us-east-1:123456789012:secret:ses-smtp-abc123",
		"ClientRequestToken": "11111111-2222-3333-4444-555555555555",
		"Step": "createSecret"
	}`

	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.Equal(t, StepCreate, event.Step)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", event.ClientRequestToken)
}

func TestStepRejectsUnknownValues(t *testing.T) {
	var step Step
	require.NoError(t, step.UnmarshalText([]byte("finishSecret")))
	assert.Equal(t, StepFinish, step)

	err := step.UnmarshalText([]byte("deleteSecret"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestIdentityFromARN(t *testing.T) {
	identity, err := identityFromARN("arn:aws:iam::123456789012:user/ses-smtp-user")
	require.NoError(t, err)
	assert.Equal(t, "ses-smtp-user", identity)

	// Users created under an IAM path still resolve to the trailing
	// segment.
	identity, err = identityFromARN("arn:aws:iam::123456789012:user/mail/ses-smtp-user")
	require.NoError(t, err)
	assert.Equal(t, "ses-smtp-user", identity)

	_, err = identityFromARN("arn:aws:iam::123456789012:root")
	require.Error(t, err)

	_, err = identityFromARN("arn:aws:iam::123456789012:user/")
	require.Error(t, err)
}
