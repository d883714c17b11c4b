package services

import (
	"errors"

	"github.com/yungbote/devjourney-backend/internal/platform/apierr"
)

var (
	ErrNoContentForAge    = apierr.NotFound("no_content_for_age", errors.New("no content for this age"))
	ErrUnknownEntry       = apierr.Validation("unknown_content_entry", errors.New("unknown content entry"))
	ErrSessionNotFound    = apierr.NotFound("session_not_found", errors.New("session not found"))
	ErrAssessmentNotFound = apierr.NotFound("assessment_not_found", errors.New("assessment not found"))
	ErrInvalidAnswer      = apierr.Validation("invalid_answer_code", errors.New("answer code must be 1, 2 or 3"))
	ErrInvalidTransition  = apierr.Validation("invalid_status_transition", errors.New("status transition not allowed"))
)
