package model

// Turn response statuses.
type Status string

const (
	StatusSuccess               Status = "success"
	StatusClarificationNeeded   Status = "clarification_needed"
	StatusConfirmationNeeded    Status = "confirmation_needed"
	StatusAuthRequired          Status = "auth_required"
	StatusAuthChallengeRequired Status = "auth_challenge_required"
	StatusCancelled             Status = "cancelled"
	StatusError                 Status = "error"
	StatusInfo                  Status = "info"
)

// Error kinds carried on error responses so the boundary can map them to
// status codes.
type ErrorKind string

const (
	ErrKindValidation  ErrorKind = "validation"
	ErrKindNotFound    ErrorKind = "not_found"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindInternal    ErrorKind = "internal"
)

// AuthChallengeInfo describes the step-up required when the caller's auth
// level is below the intent's requirement.
type AuthChallengeInfo struct {
	RequiredLevel AuthLevel `json:"required_level"`
	Methods       []string  `json:"methods"`
	TimeoutSec    int       `json:"timeout"`
}

// Operation result statuses.
const (
	OpPending          = "pending"
	OpInProgress       = "in_progress"
	OpCompleted        = "completed"
	OpFailed           = "failed"
	OpRequiresApproval = "requires_approval"
)

// OperationResult is the outcome of executing a banking operation.
type OperationResult struct {
	Status      string         `json:"status"`
	Success     bool           `json:"success"`
	Data        map[string]any `json:"data,omitempty"`
	Message     string         `json:"message"`
	ReferenceID string         `json:"reference_id,omitempty"`
	NextSteps   []string       `json:"next_steps,omitempty"`
	UIHints     map[string]any `json:"ui_hints,omitempty"`
}

// ApprovalInfo is the public view of a pending approval surfaced on a
// confirmation_needed response.
type ApprovalInfo struct {
	ApprovalMethod string  `json:"approval_method"`
	Token          string  `json:"token"`
	Amount         float64 `json:"amount"`
	ExpiresInSec   int     `json:"expires_in_seconds"`
}

// ClarificationInfo is the public view of a pending clarification.
type ClarificationInfo struct {
	Type          string                `json:"type"`
	MissingFields []EntityType          `json:"missing_fields,omitempty"`
	Options       []ClarificationOption `json:"options,omitempty"`
	Question      string                `json:"question,omitempty"`
}

// ProcessRequest is the core entry payload for one turn.
type ProcessRequest struct {
	Query            string            `json:"query"`
	SessionID        string            `json:"session_id,omitempty"`
	SkipResolution   bool              `json:"skip_resolution,omitempty"`
	UIContext        string            `json:"ui_context,omitempty"` // banking|transaction|chat
	UserProfile      *UserProfile      `json:"user_profile,omitempty"`
	VerificationData *VerificationData `json:"verification_data,omitempty"`
}

// TurnResponse is the outcome of one Process call.
type TurnResponse struct {
	Status               Status                        `json:"status"`
	Intent               string                        `json:"intent,omitempty"`
	Confidence           float64                       `json:"confidence,omitempty"`
	Entities             Entities                      `json:"entities,omitempty"`
	Message              string                        `json:"message"`
	NextSteps            []string                      `json:"next_steps,omitempty"`
	Execution            *OperationResult              `json:"execution,omitempty"`
	UIAssistance         map[string]any                `json:"ui_assistance,omitempty"`
	ProcessingTimeMs     int64                         `json:"processing_time_ms"`
	RequiresConfirmation bool                          `json:"requires_confirmation,omitempty"`
	PendingClarification *ClarificationInfo            `json:"pending_clarification,omitempty"`
	Approval             *ApprovalInfo                 `json:"approval,omitempty"`
	AuthChallenge        *AuthChallengeInfo            `json:"auth_challenge,omitempty"`
	Warnings             []string                      `json:"warnings,omitempty"`
	ValidationErrors     map[EntityType]string         `json:"validation_errors,omitempty"`
	RefinementApplied    bool                          `json:"refinement_applied,omitempty"`
	RefinementReason     string                        `json:"refinement_reason,omitempty"`
	ErrorKind            ErrorKind                     `json:"error_kind,omitempty"`
	SessionID            string                        `json:"session_id,omitempty"`
	FromCache            bool                          `json:"from_cache,omitempty"`
	Fallback             bool                          `json:"fallback,omitempty"`
}
