package auth

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an authentication decision or token
// verification failed. Verifiers return failures as data carrying exactly
// one kind; the engine maps kinds to reject outcomes without ever exposing
// provider-internal detail to the caller.
type FailureKind string

const (
	// KindInsecureTransport means the request arrived over an insecure channel.
	KindInsecureTransport FailureKind = "insecure_transport"
	// KindNoCredentials means no Authorization header was present.
	KindNoCredentials FailureKind = "no_credentials"
	// KindUnsupportedScheme means the Authorization header was not Bearer.
	KindUnsupportedScheme FailureKind = "unsupported_scheme"
	// KindNoMatchingVerifier means no registered verifier handles the provider hint.
	KindNoMatchingVerifier FailureKind = "no_matching_verifier"
	// KindMalformedToken means the credential could not be parsed.
	KindMalformedToken FailureKind = "malformed_token"
	// KindSignatureInvalid means a cryptographic signature check failed.
	KindSignatureInvalid FailureKind = "signature_invalid"
	// KindExpired means the credential is past its expiry.
	KindExpired FailureKind = "expired"
	// KindAudienceMismatch means the credential was issued for a different client.
	KindAudienceMismatch FailureKind = "audience_mismatch"
	// KindIssuerMismatch means the credential was issued by an untrusted issuer.
	KindIssuerMismatch FailureKind = "issuer_mismatch"
	// KindUnverifiedEmail means the provider has not verified the account email.
	KindUnverifiedEmail FailureKind = "unverified_email"
	// KindRemoteEndpointError means a provider endpoint answered with a non-200 status.
	KindRemoteEndpointError FailureKind = "remote_endpoint_error"
	// KindNetworkError means a provider endpoint could not be reached in time.
	KindNetworkError FailureKind = "network_error"
	// KindInsufficientRole means the caller authenticated but lacks a required
	// role. Only the engine itself produces this kind.
	KindInsufficientRole FailureKind = "insufficient_role"
)

// VerificationError is a classified verification failure. Detail is intended
// for server-side logs only and must never be echoed to the caller.
type VerificationError struct {
	Kind   FailureKind
	Detail string
	cause  error
}

// NewVerificationError creates a classified verification failure.
func NewVerificationError(kind FailureKind, detail string, cause error) *VerificationError {
	return &VerificationError{Kind: kind, Detail: detail, cause: cause}
}

// Verificationf creates a classified verification failure with a formatted detail.
func Verificationf(kind FailureKind, format string, args ...any) *VerificationError {
	return &VerificationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the underlying error.
func (e *VerificationError) Unwrap() error {
	return e.cause
}

// KindOf classifies any error returned by a verifier. Unclassified errors
// count as network errors: a verifier that failed without saying why most
// likely failed reaching its provider, and the caller must not learn more.
func KindOf(err error) FailureKind {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return KindNetworkError
}

// IsRetryable reports whether the failure may succeed if the caller retries,
// which is only true for transient provider trouble.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetworkError, KindRemoteEndpointError:
		return true
	default:
		return false
	}
}
