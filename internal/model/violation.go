package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ViolationType enumerates recognized anti-cheat signals.
type ViolationType string

const (
	ViolationTabSwitch      ViolationType = "tab_switch"
	ViolationWindowBlur     ViolationType = "window_blur"
	ViolationCopyPaste      ViolationType = "copy_paste"
	ViolationRightClick     ViolationType = "right_click"
	ViolationFullscreenExit ViolationType = "fullscreen_exit"
	ViolationSuspicious     ViolationType = "suspicious_activity"
)

// ViolationSeverity grades how serious a signal is.
type ViolationSeverity string

const (
	SeverityLow    ViolationSeverity = "low"
	SeverityMedium ViolationSeverity = "medium"
	SeverityHigh   ViolationSeverity = "high"
)

// Violation is an append-only anti-cheat record attached to an attempt.
// Violations never alter scores; they are surfaced to reviewers for manual
// policy action.
type Violation struct {
	ID         uuid.UUID         `json:"id"`
	AttemptID  uuid.UUID         `json:"attempt_id"`
	ExamID     uuid.UUID         `json:"exam_id"`
	UserID     int               `json:"user_id"`
	Type       ViolationType     `json:"type"`
	Severity   ViolationSeverity `json:"severity"`
	Evidence   json.RawMessage   `json:"evidence,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ReportViolationRequest is the payload for reporting an anti-cheat event.
type ReportViolationRequest struct {
	Type     ViolationType     `json:"type" binding:"required,oneof=tab_switch window_blur copy_paste right_click fullscreen_exit suspicious_activity"`
	Severity ViolationSeverity `json:"severity" binding:"required,oneof=low medium high"`
	Evidence json.RawMessage   `json:"evidence" binding:"omitempty"`
}
