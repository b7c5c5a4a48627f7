package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication / Authorization ────────────────────────────────
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrTokenExpired    ErrCode = "TOKEN_EXPIRED"
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrUserAccessOnly  ErrCode = "USER_ACCESS_ONLY"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrNotEligible        ErrCode = "NOT_ELIGIBLE"
	ErrAlreadyInProgress  ErrCode = "ATTEMPT_ALREADY_IN_PROGRESS"
	ErrAttemptClosed      ErrCode = "ATTEMPT_CLOSED"
	ErrNotCompleted       ErrCode = "ATTEMPT_NOT_COMPLETED"
	ErrExamNotPublished   ErrCode = "EXAM_NOT_PUBLISHED"
	ErrExamNotStarted     ErrCode = "EXAM_NOT_STARTED"
	ErrExamEnded          ErrCode = "EXAM_ENDED"
	ErrMaxAttemptsReached ErrCode = "MAX_ATTEMPTS_REACHED"
	ErrRegistrationNeeded ErrCode = "REGISTRATION_REQUIRED"
	ErrAnswerShape        ErrCode = "ANSWER_SHAPE_MISMATCH"

	// ─── Grading / certification ───────────────────────────────────────
	ErrNotPendingReview     ErrCode = "NOT_PENDING_REVIEW"
	ErrCertificateNotFound  ErrCode = "CERTIFICATE_NOT_FOUND"
	ErrCertificateNotEarned ErrCode = "CERTIFICATE_NOT_EARNED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication / Authorization ────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrUserAccessOnly:
		return "This resource is restricted to exam takers."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrNotEligible:
		return "You are not eligible to take this exam."
	case ErrAlreadyInProgress:
		return "You already have an attempt in progress. Resume it instead of starting a new one."
	case ErrAttemptClosed:
		return "Time has expired. Your recorded answers were submitted automatically."
	case ErrNotCompleted:
		return "This attempt has not been completed yet."
	case ErrExamNotPublished:
		return "This exam is not open for attempts."
	case ErrExamNotStarted:
		return "This exam is not yet open. Please come back at its start time."
	case ErrExamEnded:
		return "This exam has ended."
	case ErrMaxAttemptsReached:
		return "You have used all allowed attempts for this exam."
	case ErrRegistrationNeeded:
		return "An approved registration is required before taking this exam."
	case ErrAnswerShape:
		return "The answer format does not match the question type."

	// ─── Grading / certification ───────────────────────────────────────
	case ErrNotPendingReview:
		return "This attempt has no answers awaiting manual grading."
	case ErrCertificateNotFound:
		return "No certificate has been issued for this attempt."
	case ErrCertificateNotEarned:
		return "This attempt did not earn a certificate."

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
