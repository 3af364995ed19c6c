package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidAccessPhrase ErrCode = "INVALID_ACCESS_PHRASE"
	ErrTokenRequired       ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid        ErrCode = "TOKEN_INVALID"
	ErrTokenExpired        ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotFound           ErrCode = "EXAM_NOT_FOUND"
	ErrTeacherProfileRequired ErrCode = "TEACHER_PROFILE_REQUIRED"
	ErrInvalidRegistration    ErrCode = "INVALID_REGISTRATION"
	ErrDuplicateAttempt       ErrCode = "DUPLICATE_ATTEMPT"
	ErrAttemptNotFound        ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptFinalized       ErrCode = "ATTEMPT_FINALIZED"
	ErrInvalidAnswer          ErrCode = "INVALID_ANSWER"

	// ─── Export ────────────────────────────────────────────────────────
	ErrUnsupportedFormat ErrCode = "UNSUPPORTED_FORMAT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidAccessPhrase:
		return "Invalid access phrase."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamNotFound:
		return "No exam matches this code."
	case ErrTeacherProfileRequired:
		return "Save your teacher profile before creating exams."
	case ErrInvalidRegistration:
		return "Name and student ID are required."
	case ErrDuplicateAttempt:
		return "This student ID has already taken this exam."
	case ErrAttemptNotFound:
		return "Attempt not found or expired."
	case ErrAttemptFinalized:
		return "This attempt has already been submitted."
	case ErrInvalidAnswer:
		return "Question or option index out of range."

	// ─── Export ────────────────────────────────────────────────────────
	case ErrUnsupportedFormat:
		return "Unsupported export format. Use pdf, xlsx or doc."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
