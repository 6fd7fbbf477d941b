// Package smtppass converts an IAM secret access key into the SMTP password
// expected by the Amazon SES SMTP interface.
//
// The derivation is the fixed SigV4-style chain documented by AWS:
// https://docs.aws.amazon.com/ses/latest/dg/smtp-credentials.html
// Every constant below is part of that protocol; changing any of them
// produces a password SES will reject.
package smtppass

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const (
	date     = "11111111"
	service  = "ses"
	terminal = "aws4_request"
	message  = "SendRawEmail"
	version  = 0x04
)

// Derive computes the SES SMTP password for a secret access key and signing
// region. It is pure: identical inputs always produce the identical string,
// and the result always decodes to 33 bytes (one version byte plus a
// 32-byte HMAC-SHA256 digest).
func Derive(secretAccessKey, region string) string {
	sig := sign([]byte("AWS4"+secretAccessKey), date)
	sig = sign(sig, region)
	sig = sign(sig, service)
	sig = sign(sig, terminal)
	sig = sign(sig, message)

	out := make([]byte, 0, sha256.Size+1)
	out = append(out, version)
	out = append(out, sig...)
	return base64.StdEncoding.EncodeToString(out)
}

func sign(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}
