package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

// responseNamespace seeds the deterministic response ids.
var responseNamespace = uuid.MustParse("5b0c4a52-7d1e-4f0a-9a51-2f6c1d3e8b74")

type RecordResponseInput struct {
	QuestionID string
	Answer     types.AnswerCode
	Note       string
}

type ResponseService interface {
	// RecordResponse stores the answer for (owner, question) in the current
	// session, replacing an earlier answer to the same question there.
	RecordResponse(ctx context.Context, owner types.Owner, in RecordResponseInput) (*types.Response, error)
	// History returns every response of the owner, newest first.
	History(ctx context.Context, owner types.Owner) ([]*types.Response, error)
	// DomainProgress recomputes per-domain progress for one session. An empty
	// sessionID selects the latest session.
	DomainProgress(ctx context.Context, owner types.Owner, sessionID string) (*ProgressReport, error)
}

type responseService struct {
	log       *logger.Logger
	responses devrepos.ResponseRepo
	sessions  SessionService
	sessRepo  devrepos.SessionRepo
	content   ContentService
	now       func() time.Time
}

func NewResponseService(
	log *logger.Logger,
	responses devrepos.ResponseRepo,
	sessionRepo devrepos.SessionRepo,
	sessions SessionService,
	content ContentService,
) ResponseService {
	return &responseService{
		log:       log.With("service", "ResponseService"),
		responses: responses,
		sessions:  sessions,
		sessRepo:  sessionRepo,
		content:   content,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ResponseID is stable for one (user, subject, session, entry) tuple, so a
// replacement overwrites the same record in every tier.
func ResponseID(owner types.Owner, sessionID, entryID string) string {
	key := strings.Join([]string{owner.UserID.String(), owner.SubjectID, sessionID, entryID}, "|")
	return uuid.NewSHA1(responseNamespace, []byte(key)).String()
}

func (s *responseService) RecordResponse(ctx context.Context, owner types.Owner, in RecordResponseInput) (*types.Response, error) {
	if !in.Answer.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAnswer, int(in.Answer))
	}
	entry, ok := s.content.Entry(strings.TrimSpace(in.QuestionID))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, in.QuestionID)
	}

	sessionID := ""
	active, err := s.sessions.Active(ctx, owner)
	if err != nil {
		return nil, err
	}
	if active != nil {
		sessionID = active.ID
	}

	id := ResponseID(owner, sessionID, entry.ID)
	existing, err := s.responses.Get(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("load response: %w", err)
	}

	now := s.now()
	resp := &types.Response{
		ID:         id,
		SessionID:  sessionID,
		SubjectID:  owner.SubjectID,
		UserID:     owner.UserID.String(),
		QuestionID: entry.ID,
		Domain:     entry.DomainOrDefault(),
		Answer:     in.Answer,
		AnswerText: in.Answer.Label(),
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		resp.CreatedAt = existing.CreatedAt
		s.log.Warn("response replaced", "response_id", id, "question_id", entry.ID, "subject_id", owner.SubjectID)
	}
	if err := s.responses.Save(ctx, resp); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}

	if existing == nil {
		if _, err := s.sessions.RecordAnswerIncrement(ctx, owner); err != nil {
			s.log.Warn("answer increment failed", "subject_id", owner.SubjectID, "error", err)
		}
	}
	return resp, nil
}

func (s *responseService) History(ctx context.Context, owner types.Owner) ([]*types.Response, error) {
	rows, err := s.responses.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return rows, nil
}

func (s *responseService) DomainProgress(ctx context.Context, owner types.Owner, sessionID string) (*ProgressReport, error) {
	var (
		session *types.Session
		err     error
	)
	if sessionID == "" {
		session, err = s.sessions.Latest(ctx, owner)
	} else {
		session, err = s.sessRepo.Get(ctx, owner, sessionID)
		if err == nil && session == nil {
			err = ErrSessionNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.content.SelectForAge(session.AgeInMonths)
	if err != nil && !errors.Is(err, ErrNoContentForAge) {
		return nil, err
	}
	responses, err := s.responses.ListBySession(ctx, owner, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session responses: %w", err)
	}
	answered := make(map[string]bool, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = true
	}

	items := make([]ProgressItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ProgressItem{Domain: e.DomainOrDefault(), Completed: answered[e.ID]})
	}
	return buildReport(items, nil), nil
}
