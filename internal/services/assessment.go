package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type AssessmentService interface {
	Questions(ageInMonths int, domain string) ([]types.CatalogEntry, error)
	// Start returns the owner's in-progress assessment or creates one from
	// the age's content, optionally narrowed to domains.
	Start(ctx context.Context, owner types.Owner, ageInMonths int, domains []string) (*types.Assessment, error)
	Get(ctx context.Context, owner types.Owner, id string) (*types.Assessment, error)
	RecordItem(ctx context.Context, owner types.Owner, id, questionID string, level int, note string) (*types.Assessment, error)
	Complete(ctx context.Context, owner types.Owner, id string) (*types.Assessment, error)
	Progress(ctx context.Context, owner types.Owner, id string) (*ProgressReport, error)
}

type assessmentService struct {
	log         *logger.Logger
	assessments devrepos.AssessmentRepo
	content     ContentService
	now         func() time.Time
}

func NewAssessmentService(log *logger.Logger, assessments devrepos.AssessmentRepo, content ContentService) AssessmentService {
	return &assessmentService{
		log:         log.With("service", "AssessmentService"),
		assessments: assessments,
		content:     content,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *assessmentService) Questions(ageInMonths int, domain string) ([]types.CatalogEntry, error) {
	return s.content.QuestionsFor(ageInMonths, domain)
}

func (s *assessmentService) Start(ctx context.Context, owner types.Owner, ageInMonths int, domains []string) (*types.Assessment, error) {
	open, err := s.assessments.ListByStatus(ctx, owner, types.AssessmentInProgress)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	if len(open) > 0 {
		return open[0], nil
	}

	entries, err := s.content.SelectForAge(ageInMonths)
	if err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			wanted[d] = true
		}
	}

	var items []types.AssessmentItem
	var declared []string
	seen := map[string]bool{}
	for _, e := range entries {
		d := e.DomainOrDefault()
		if len(wanted) > 0 && !wanted[d] {
			continue
		}
		items = append(items, types.AssessmentItem{QuestionID: e.ID, Domain: d, Prompt: e.Prompt})
		if !seen[d] {
			seen[d] = true
			declared = append(declared, d)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %d months, domains %v", ErrNoContentForAge, clampAge(ageInMonths), domains)
	}

	now := s.now()
	a := &types.Assessment{
		ID:          uuid.NewString(),
		SubjectID:   owner.SubjectID,
		UserID:      owner.UserID.String(),
		AgeInMonths: clampAge(ageInMonths),
		Domains:     declared,
		Items:       items,
		Status:      types.AssessmentInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.assessments.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	s.log.Info("assessment created", "assessment_id", a.ID, "subject_id", owner.SubjectID, "items", len(items))
	return a, nil
}

func (s *assessmentService) Get(ctx context.Context, owner types.Owner, id string) (*types.Assessment, error) {
	a, err := s.assessments.Get(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if a == nil {
		return nil, ErrAssessmentNotFound
	}
	return a, nil
}

func (s *assessmentService) RecordItem(ctx context.Context, owner types.Owner, id, questionID string, level int, note string) (*types.Assessment, error) {
	if !types.AnswerCode(level).Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAnswer, level)
	}
	a, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if a.Status == types.AssessmentCompleted {
		return nil, fmt.Errorf("%w: assessment is completed", ErrInvalidTransition)
	}
	idx := -1
	for i, it := range a.Items {
		if it.QuestionID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, questionID)
	}
	lvl := level
	a.Items[idx].ResponseLevel = &lvl
	a.Items[idx].Note = strings.TrimSpace(note)
	a.UpdatedAt = s.now()
	if err := s.assessments.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	return a, nil
}

func (s *assessmentService) Complete(ctx context.Context, owner types.Owner, id string) (*types.Assessment, error) {
	a, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if a.Status == types.AssessmentCompleted {
		return a, nil
	}
	now := s.now()
	a.Status = types.AssessmentCompleted
	a.CompletedAt = &now
	a.UpdatedAt = now
	if err := s.assessments.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("complete assessment: %w", err)
	}
	s.log.Info("assessment completed", "assessment_id", a.ID, "progress", a.Progress())
	return a, nil
}

func (s *assessmentService) Progress(ctx context.Context, owner types.Owner, id string) (*ProgressReport, error) {
	a, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	items := make([]ProgressItem, 0, len(a.Items))
	for _, it := range a.Items {
		items = append(items, ProgressItem{Domain: it.Domain, Completed: it.ResponseLevel != nil})
	}
	return buildReport(items, a.Domains), nil
}
