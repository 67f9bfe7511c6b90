package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Attempt tokens ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Assessment lifecycle ──────────────────────────────────────────
	ErrAlreadyCompleted  ErrCode = "ALREADY_COMPLETED"
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionFinished   ErrCode = "SESSION_FINISHED"
	ErrInvalidNavigation ErrCode = "INVALID_NAVIGATION"
	ErrEmptyCatalog      ErrCode = "EMPTY_CATALOG"

	// ─── Proctor ───────────────────────────────────────────────────────
	ErrProctorKeyInvalid  ErrCode = "PROCTOR_KEY_INVALID"
	ErrProctorKeyRequired ErrCode = "PROCTOR_KEY_REQUIRED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Attempt tokens ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An attempt token is required."
	case ErrTokenInvalid:
		return "The attempt token is invalid or has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Assessment lifecycle ──────────────────────────────────────────
	case ErrAlreadyCompleted:
		return "This email address has already completed the assessment."
	case ErrSessionNotFound:
		return "No assessment attempt was found for this token."
	case ErrSessionFinished:
		return "This assessment attempt has already been submitted."
	case ErrInvalidNavigation:
		return "The submitted question does not match your current position."
	case ErrEmptyCatalog:
		return "No questions are configured for this assessment."

	// ─── Proctor ───────────────────────────────────────────────────────
	case ErrProctorKeyInvalid:
		return "The proctor access key is invalid."
	case ErrProctorKeyRequired:
		return "A proctor access key is required."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
