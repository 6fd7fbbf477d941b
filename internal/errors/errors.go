// Package errors defines the user-facing error types shared by the
// sesrotate commands and the rotation core.
package errors

import (
	"fmt"
	"strings"
)

// UserError is an error that should be shown to the operator with helpful
// context.
type UserError struct {
	Message    string
	Details    string
	Suggestion string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ServiceError wraps an AWS service call failure with a suggestion derived
// from the error text.
func ServiceError(service, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", service, operation),
		Suggestion: getServiceSuggestion(service, err),
		Err:        err,
	}
}

func getServiceSuggestion(service string, err error) string {
	errStr := err.Error()

	switch service {
	case "secretsmanager":
		if strings.Contains(errStr, "ResourceNotFoundException") {
			return "Verify the secret ARN and region. List secrets with: 'aws secretsmanager list-secrets'"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for secretsmanager:GetSecretValue and secretsmanager:PutSecretValue"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}

	case "iam":
		if strings.Contains(errStr, "LimitExceeded") {
			return "The user already has two access keys. Delete the stale key before rotating"
		}
		if strings.Contains(errStr, "NoSuchEntity") {
			return "Verify the SMTP user exists: 'aws iam get-user --user-name <name>'"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for iam:CreateAccessKey, iam:ListAccessKeys and iam:DeleteAccessKey"
		}

	case "sts":
		if strings.Contains(errStr, "InvalidClientTokenId") || strings.Contains(errStr, "SignatureDoesNotMatch") {
			return "The access key may not have propagated yet, or the key material is wrong"
		}
	}

	if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
		return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
	}
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check the endpoint configuration and your network"
	}

	return ""
}

// IsRetryable reports whether an error looks like a transient upstream
// failure worth retrying at the orchestrator level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
