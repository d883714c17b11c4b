package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/http/response"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
	"github.com/yungbote/devjourney-backend/internal/services"
)

type AssessmentHandler struct {
	log         *logger.Logger
	assessments services.AssessmentService
}

func NewAssessmentHandler(log *logger.Logger, assessments services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{log: log.With("handler", "AssessmentHandler"), assessments: assessments}
}

type startAssessmentRequest struct {
	AgeInMonths *int     `json:"ageInMonths" binding:"required,min=0"`
	Domains     []string `json:"domains"`
}

type assessmentResponseRequest struct {
	QuestionID    string `json:"questionId" binding:"required"`
	ResponseLevel int    `json:"responseLevel" binding:"required"`
	Note          string `json:"note"`
}

// GET /assessments/questions?ageInMonths=&domain=
func (h *AssessmentHandler) Questions(c *gin.Context) {
	age, err := queryAge(c)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	entries, err := h.assessments.Questions(age, strings.TrimSpace(c.Query("domain")))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	out := make([]schemacompat.Record, 0, len(entries))
	for _, e := range entries {
		rec, err := schemacompat.Encode(e)
		if err != nil {
			response.RespondServiceError(c, h.log, err)
			return
		}
		out = append(out, rec)
	}
	response.RespondOK(c, out)
}

// POST /assessments/:subjectId
func (h *AssessmentHandler) Start(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req startAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	a, err := h.assessments.Start(c.Request.Context(), owner, *req.AgeInMonths, req.Domains)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	respondRecord(c, h.log, a)
}

// GET /assessments/:subjectId/:assessmentId
func (h *AssessmentHandler) Get(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	a, err := h.assessments.Get(c.Request.Context(), owner, c.Param("assessmentId"))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	respondRecord(c, h.log, a)
}

// PUT /assessments/:subjectId/:assessmentId/responses
func (h *AssessmentHandler) RecordResponse(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req assessmentResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	a, err := h.assessments.RecordItem(c.Request.Context(), owner, c.Param("assessmentId"), req.QuestionID, req.ResponseLevel, req.Note)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	respondRecord(c, h.log, a)
}

// POST /assessments/:subjectId/:assessmentId/complete
func (h *AssessmentHandler) Complete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	a, err := h.assessments.Complete(c.Request.Context(), owner, c.Param("assessmentId"))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	respondRecord(c, h.log, a)
}

// GET /assessments/:subjectId/:assessmentId/progress
func (h *AssessmentHandler) Progress(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	report, err := h.assessments.Progress(c.Request.Context(), owner, c.Param("assessmentId"))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, report)
}
