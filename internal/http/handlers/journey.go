package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/http/middleware"
	"github.com/yungbote/devjourney-backend/internal/http/response"
	"github.com/yungbote/devjourney-backend/internal/platform/apierr"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
	"github.com/yungbote/devjourney-backend/internal/services"
)

type JourneyHandler struct {
	log       *logger.Logger
	content   services.ContentService
	sessions  services.SessionService
	responses services.ResponseService
}

func NewJourneyHandler(
	log *logger.Logger,
	content services.ContentService,
	sessions services.SessionService,
	responses services.ResponseService,
) *JourneyHandler {
	return &JourneyHandler{
		log:       log.With("handler", "JourneyHandler"),
		content:   content,
		sessions:  sessions,
		responses: responses,
	}
}

type journeyView struct {
	*services.Journey
	SessionID      string   `json:"sessionId"`
	Progress       int      `json:"progress"`
	CurrentStep    int      `json:"currentStep"`
	CompletedSteps []string `json:"completedSteps"`
}

type saveProgressRequest struct {
	JourneyID      string   `json:"journeyId"`
	CurrentStep    int      `json:"currentStep" binding:"min=0"`
	CompletedSteps []string `json:"completedSteps"`
}

type submitAnswerRequest struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId" binding:"required"`
	Note             string `json:"note"`
}

// GET /journey/:subjectId?ageInMonths=
func (h *JourneyHandler) GetJourney(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	age, err := queryAge(c)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	journey, err := h.content.Journey(age)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	session, err := h.sessions.FindOrCreateActive(c.Request.Context(), owner, journey.ID, age, journey.TotalQuestions)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	// An active session started in another age band stays authoritative until
	// it is completed or paused, so serve the journey it was created for.
	if session.ContentSetID != journey.ID {
		bound, err := h.content.Journey(session.AgeInMonths)
		if err == nil && bound.ID == session.ContentSetID {
			h.log.Info("serving journey of active session", "session_id", session.ID, "requested_age", age, "session_age", session.AgeInMonths)
			journey = bound
		} else {
			h.log.Warn("active session content set no longer resolves", "session_id", session.ID, "content_set", session.ContentSetID, "error", err)
		}
	}
	view := journeyView{
		Journey:        journey,
		SessionID:      session.ID,
		Progress:       session.CompletionPercent(),
		CompletedSteps: []string{},
	}
	switch n := session.SessionData["currentStepIndex"].(type) {
	case float64:
		view.CurrentStep = int(n)
	case int:
		view.CurrentStep = n
	}
	switch steps := session.SessionData["completedStepIds"].(type) {
	case []string:
		view.CompletedSteps = append(view.CompletedSteps, steps...)
	case []any:
		for _, s := range steps {
			if id, ok := s.(string); ok {
				view.CompletedSteps = append(view.CompletedSteps, id)
			}
		}
	}
	response.RespondOK(c, view)
}

// POST /journey/:subjectId/progress
func (h *JourneyHandler) SaveProgress(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req saveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	active, err := h.sessions.Active(c.Request.Context(), owner)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if active == nil {
		response.RespondServiceError(c, h.log, services.ErrSessionNotFound)
		return
	}
	if req.JourneyID != "" && req.JourneyID != active.ContentSetID {
		response.RespondError(c, http.StatusBadRequest, "journey_mismatch",
			fmt.Errorf("journeyId %q is not the active journey", req.JourneyID))
		return
	}
	session, pct, err := h.sessions.SaveProgress(c.Request.Context(), owner, active.ID, req.CurrentStep, req.CompletedSteps)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"sessionId": session.ID, "progress": pct})
}

// POST /journey/:subjectId/answers
func (h *JourneyHandler) SubmitAnswer(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	questionID, code, err := services.ParseOptionID(req.QuestionID, req.SelectedOptionID)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	resp, err := h.responses.RecordResponse(c.Request.Context(), owner, services.RecordResponseInput{
		QuestionID: questionID,
		Answer:     code,
		Note:       req.Note,
	})
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	respondRecord(c, h.log, resp)
}

// GET /journey/:subjectId/history
func (h *JourneyHandler) History(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	history, err := h.responses.History(c.Request.Context(), owner)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	out := make([]schemacompat.Record, 0, len(history))
	for _, r := range history {
		rec, err := schemacompat.Encode(r)
		if err != nil {
			response.RespondServiceError(c, h.log, err)
			return
		}
		out = append(out, rec)
	}
	response.RespondOK(c, out)
}

// POST /journey/:subjectId/pause
func (h *JourneyHandler) Pause(c *gin.Context) {
	h.transition(c, h.sessions.Pause)
}

// POST /journey/:subjectId/complete
func (h *JourneyHandler) Complete(c *gin.Context) {
	h.transition(c, h.sessions.Complete)
}

// transition applies fn to the session named by ?sessionId, or the active one.
func (h *JourneyHandler) transition(c *gin.Context, fn func(context.Context, types.Owner, string) (*types.Session, error)) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	session, err := fn(c.Request.Context(), owner, strings.TrimSpace(c.Query("sessionId")))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	respondRecord(c, h.log, session)
}

// GET /journey/:subjectId/progress
func (h *JourneyHandler) Progress(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	report, err := h.responses.DomainProgress(c.Request.Context(), owner, strings.TrimSpace(c.Query("sessionId")))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, report)
}

func requireOwner(c *gin.Context) (types.Owner, bool) {
	owner, ok := middleware.OwnerFrom(c)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return types.Owner{}, false
	}
	return owner, true
}

func queryAge(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("ageInMonths"))
	if raw == "" {
		return 0, apierr.Validationf("missing_age", "ageInMonths is required")
	}
	age, err := strconv.Atoi(raw)
	if err != nil || age < 0 {
		return 0, apierr.Validationf("invalid_age", "ageInMonths must be a non-negative integer, got %q", raw)
	}
	return age, nil
}

// respondRecord replies with v in both field spellings, the persisted shape.
func respondRecord(c *gin.Context, log *logger.Logger, v any) {
	rec, err := schemacompat.Encode(v)
	if err != nil {
		response.RespondServiceError(c, log, err)
		return
	}
	response.RespondOK(c, rec)
}
