package utils

import (
	"errors"
)

// Domain-level errors used by the workflow layer to provide
// fine-grained failure reasons.
var (
	ErrInvalidPhone       = errors.New("invalid_phone")
	ErrMissingField       = errors.New("missing_field")
	ErrMissingDocument    = errors.New("missing_document")
	ErrMissingAgreement   = errors.New("missing_agreement")
	ErrConsentRequired    = errors.New("consent_required")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrCodeSessionExpired = errors.New("code_session_expired")
	ErrPaymentRequired    = errors.New("payment_required")
	ErrSessionExpired     = errors.New("session_expired")

	// For re-entrant transitions while a call is still in flight
	ErrAlreadySubmitting = errors.New("already_submitting")

	// For transitions fired from the wrong workflow state
	ErrInvalidTransition = errors.New("invalid_transition")
)
