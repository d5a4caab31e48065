package activity

import "errors"

var (
	// ErrInvalidConfig is returned when a config blob fails decoding or
	// structural validation.
	ErrInvalidConfig = errors.New("activity: invalid config")
	// ErrUnknownTemplate is returned when a template ID names no built-in
	// activity template.
	ErrUnknownTemplate = errors.New("activity: unknown template")
	// ErrProofNil is returned when proof verification is asked for a missing
	// proof.
	ErrProofNil = errors.New("activity: eligibility proof required")
	// ErrProofMalformed is returned when a proof's claimant or kind tag does
	// not match the claim being authenticated.
	ErrProofMalformed = errors.New("activity: malformed eligibility proof")
	// ErrProofSignature is returned when the recovered signer does not match
	// the configured signing key.
	ErrProofSignature = errors.New("activity: eligibility proof signature invalid")
	// ErrProofExpired is returned for proofs older than the validity window.
	ErrProofExpired = errors.New("activity: eligibility proof expired")
	// ErrProofFuture is returned for proofs timestamped beyond the clock-skew
	// tolerance.
	ErrProofFuture = errors.New("activity: eligibility proof timestamp in the future")
)
