package development

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// CanTransition encodes active -> {active, paused, completed}, paused -> active.
// Completed is terminal.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	switch s {
	case SessionActive:
		return to == SessionActive || to == SessionPaused || to == SessionCompleted
	case SessionPaused:
		return to == SessionActive || to == SessionPaused
	default:
		return false
	}
}

// Owner is the (user, subject) pair every record belongs to.
type Owner struct {
	UserID    uuid.UUID
	SubjectID string
}

type Session struct {
	ID                string         `json:"id"`
	SubjectID         string         `json:"subject_id"`
	UserID            string         `json:"user_id"`
	ContentSetID      string         `json:"content_set_id"`
	AgeInMonths       int            `json:"age_in_months"`
	TotalQuestions    int            `json:"total_questions"`
	AnsweredQuestions int            `json:"answered_questions"`
	Status            SessionStatus  `json:"status"`
	SessionData       map[string]any `json:"session_data"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// CompletionPercent is answered/total*100 rounded, 0 for an empty session,
// never above 100.
func (s *Session) CompletionPercent() int {
	if s == nil || s.TotalQuestions <= 0 {
		return 0
	}
	pct := Percent(s.AnsweredQuestions, s.TotalQuestions)
	if pct > 100 {
		return 100
	}
	return pct
}
