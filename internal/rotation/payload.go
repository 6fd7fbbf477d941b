package rotation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/sesrotate/internal/awsapi"
	dserrors "github.com/systmms/sesrotate/internal/errors"
)

// Payload is the structured secret value consumed by the mail relay. The
// field names are fixed by the applications reading the secret.
type Payload struct {
	// SMTPUsername is the IAM access key ID.
	SMTPUsername string `json:"SMTP_USERNAME"`

	// SMTPSecret is the IAM secret access key.
	SMTPSecret string `json:"SMTP_SECRET"`

	// SMTPPassword is the SES SMTP password derived from SMTPSecret.
	SMTPPassword string `json:"SMTP_PASSWORD"`

	// SMTPRegion is the signing region the password was derived for.
	SMTPRegion string `json:"SMTP_REGION"`
}

// payloadSchema is the required-field contract for a stored payload.
const payloadSchema = `{
	"type": "object",
	"required": ["SMTP_USERNAME", "SMTP_SECRET", "SMTP_PASSWORD", "SMTP_REGION"],
	"properties": {
		"SMTP_USERNAME": {"type": "string", "minLength": 1},
		"SMTP_SECRET":   {"type": "string", "minLength": 1},
		"SMTP_PASSWORD": {"type": "string", "minLength": 1},
		"SMTP_REGION":   {"type": "string", "minLength": 1}
	}
}`

var compiledPayloadSchema = gojsonschema.NewStringLoader(payloadSchema)

// parsePayload validates raw JSON against the payload schema and decodes
// it. Validation runs first so a corrupt payload is reported as a
// SchemaViolationError before any field is used.
func parsePayload(secretID, raw string) (*Payload, error) {
	result, err := gojsonschema.Validate(compiledPayloadSchema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("secret %s payload is not valid JSON: %w", secretID, err)
	}

	if !result.Valid() {
		desc := result.Errors()[0]
		violation := SchemaViolationError{SecretID: secretID, Detail: desc.String()}
		if property, ok := desc.Details()["property"].(string); ok {
			violation.Field = property
		} else if desc.Field() != "(root)" {
			violation.Field = desc.Field()
		}
		return nil, violation
	}

	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("secret %s payload failed to decode: %w", secretID, err)
	}
	return &payload, nil
}

// getPayload fetches and validates the payload for a stage. A non-empty
// token pins the read to that exact version, so a stage/version mismatch
// surfaces as a hard failure from the store rather than a stale read.
func getPayload(ctx context.Context, client awsapi.SecretsManagerAPI, secretID, stage, token string) (*Payload, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String(stage),
	}
	if token != "" {
		input.VersionId = aws.String(token)
	}

	out, err := client.GetSecretValue(ctx, input)
	if err != nil {
		// Wrapped with Unwrap intact, so callers can still detect
		// ResourceNotFoundException for the idempotent create path.
		return nil, dserrors.ServiceError("secretsmanager", "GetSecretValue", err)
	}
	if out.SecretString == nil {
		return nil, SchemaViolationError{SecretID: secretID, Detail: "secret has no string value"}
	}

	return parsePayload(secretID, *out.SecretString)
}

// marshal encodes the payload for storage.
func (p *Payload) marshal() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret payload: %w", err)
	}
	return string(data), nil
}
