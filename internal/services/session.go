package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type SessionService interface {
	// FindOrCreateActive returns the owner's active session, resuming a
	// paused one for the same content set, or creating a new one sized to
	// totalQuestions. An existing session's total is kept as is.
	FindOrCreateActive(ctx context.Context, owner types.Owner, contentSetID string, ageInMonths, totalQuestions int) (*types.Session, error)
	// SaveProgress records the step cursor and returns the completion percent.
	SaveProgress(ctx context.Context, owner types.Owner, sessionID string, currentStep int, completedSteps []string) (*types.Session, int, error)
	// RecordAnswerIncrement bumps the active session's answered count. It
	// returns nil without error when no session is active.
	RecordAnswerIncrement(ctx context.Context, owner types.Owner) (*types.Session, error)
	Complete(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error)
	Pause(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error)
	Resume(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error)
	Active(ctx context.Context, owner types.Owner) (*types.Session, error)
	// Latest returns the active session, else the most recently updated one.
	Latest(ctx context.Context, owner types.Owner) (*types.Session, error)
}

type sessionService struct {
	log      *logger.Logger
	sessions devrepos.SessionRepo
	flight   singleflight.Group
	now      func() time.Time
}

func NewSessionService(log *logger.Logger, sessions devrepos.SessionRepo) SessionService {
	return &sessionService{
		log:      log.With("service", "SessionService"),
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func ownerKey(owner types.Owner) string {
	return owner.UserID.String() + "|" + owner.SubjectID
}

func copySession(s *types.Session) *types.Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func (s *sessionService) FindOrCreateActive(ctx context.Context, owner types.Owner, contentSetID string, ageInMonths, totalQuestions int) (*types.Session, error) {
	v, err, _ := s.flight.Do(ownerKey(owner), func() (any, error) {
		return s.findOrCreate(ctx, owner, contentSetID, ageInMonths, totalQuestions)
	})
	if err != nil {
		return nil, err
	}
	return copySession(v.(*types.Session)), nil
}

func (s *sessionService) findOrCreate(ctx context.Context, owner types.Owner, contentSetID string, ageInMonths, totalQuestions int) (*types.Session, error) {
	all, err := s.sessions.ListByStatus(ctx, owner, "")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if active := s.reconcile(ctx, all); active != nil {
		return active, nil
	}

	// most recently touched paused session for the same content set
	var paused *types.Session
	for _, row := range all {
		if row.Status != types.SessionPaused || row.ContentSetID != contentSetID {
			continue
		}
		if paused == nil || row.UpdatedAt.After(paused.UpdatedAt) {
			paused = row
		}
	}
	if paused != nil {
		paused.Status = types.SessionActive
		paused.UpdatedAt = s.now()
		if err := s.sessions.Save(ctx, paused); err != nil {
			return nil, fmt.Errorf("resume session: %w", err)
		}
		s.log.Info("session resumed", "session_id", paused.ID, "subject_id", owner.SubjectID)
		return paused, nil
	}

	now := s.now()
	created := &types.Session{
		ID:                uuid.NewString(),
		SubjectID:         owner.SubjectID,
		UserID:            owner.UserID.String(),
		ContentSetID:      contentSetID,
		AgeInMonths:       ageInMonths,
		TotalQuestions:    totalQuestions,
		AnsweredQuestions: 0,
		Status:            types.SessionActive,
		SessionData:       map[string]any{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.sessions.Save(ctx, created); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("session created", "session_id", created.ID, "subject_id", owner.SubjectID, "content_set", contentSetID, "total_questions", totalQuestions)
	return created, nil
}

// reconcile returns the winning active session among rows (oldest by
// created_at, then id) and pauses the rest.
func (s *sessionService) reconcile(ctx context.Context, rows []*types.Session) *types.Session {
	var active []*types.Session
	for _, row := range rows {
		if row.Status == types.SessionActive {
			active = append(active, row)
		}
	}
	if len(active) == 0 {
		return nil
	}
	devrepos.SortSessionsOldestFirst(active)
	winner := active[0]
	for _, dup := range active[1:] {
		s.log.Warn("duplicate active session, pausing", "kept_session_id", winner.ID, "paused_session_id", dup.ID, "subject_id", winner.SubjectID)
		dup.Status = types.SessionPaused
		dup.UpdatedAt = s.now()
		if err := s.sessions.Save(ctx, dup); err != nil {
			s.log.Warn("pause duplicate session failed", "session_id", dup.ID, "error", err)
		}
	}
	return winner
}

func (s *sessionService) load(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error) {
	if sessionID == "" {
		return s.requireActive(ctx, owner)
	}
	row, err := s.sessions.Get(ctx, owner, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if row == nil {
		return nil, ErrSessionNotFound
	}
	return row, nil
}

func (s *sessionService) requireActive(ctx context.Context, owner types.Owner) (*types.Session, error) {
	row, err := s.Active(ctx, owner)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrSessionNotFound
	}
	return row, nil
}

func (s *sessionService) SaveProgress(ctx context.Context, owner types.Owner, sessionID string, currentStep int, completedSteps []string) (*types.Session, int, error) {
	row, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if !row.Status.CanTransition(row.Status) {
		return nil, 0, fmt.Errorf("%w: session is %s", ErrInvalidTransition, row.Status)
	}

	steps := dedupe(completedSteps)
	now := s.now()
	row.AnsweredQuestions = len(steps)
	if row.SessionData == nil {
		row.SessionData = map[string]any{}
	}
	row.SessionData["currentStepIndex"] = currentStep
	row.SessionData["completedStepIds"] = steps
	row.SessionData["lastUpdated"] = now.Format(time.RFC3339Nano)
	row.UpdatedAt = now
	if err := s.sessions.Save(ctx, row); err != nil {
		return nil, 0, fmt.Errorf("save progress: %w", err)
	}
	return row, row.CompletionPercent(), nil
}

func (s *sessionService) RecordAnswerIncrement(ctx context.Context, owner types.Owner) (*types.Session, error) {
	row, err := s.Active(ctx, owner)
	if err != nil || row == nil {
		return nil, err
	}
	if row.AnsweredQuestions >= row.TotalQuestions {
		return row, nil
	}
	row.AnsweredQuestions++
	row.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("increment answered: %w", err)
	}
	return row, nil
}

func (s *sessionService) transition(ctx context.Context, owner types.Owner, sessionID string, to types.SessionStatus) (*types.Session, error) {
	row, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, row.Status, to)
	}
	if to == types.SessionActive && row.Status != types.SessionActive {
		if other, err := s.Active(ctx, owner); err != nil {
			return nil, err
		} else if other != nil && other.ID != row.ID {
			return nil, fmt.Errorf("%w: session %s is already active", ErrInvalidTransition, other.ID)
		}
	}
	now := s.now()
	row.Status = to
	row.UpdatedAt = now
	if to == types.SessionCompleted {
		row.CompletedAt = &now
	}
	if err := s.sessions.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.log.Info("session status changed", "session_id", row.ID, "status", string(to))
	return row, nil
}

func (s *sessionService) Complete(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error) {
	return s.transition(ctx, owner, sessionID, types.SessionCompleted)
}

func (s *sessionService) Pause(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error) {
	return s.transition(ctx, owner, sessionID, types.SessionPaused)
}

func (s *sessionService) Resume(ctx context.Context, owner types.Owner, sessionID string) (*types.Session, error) {
	return s.transition(ctx, owner, sessionID, types.SessionActive)
}

func (s *sessionService) Active(ctx context.Context, owner types.Owner) (*types.Session, error) {
	rows, err := s.sessions.ListByStatus(ctx, owner, types.SessionActive)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *sessionService) Latest(ctx context.Context, owner types.Owner) (*types.Session, error) {
	rows, err := s.sessions.ListByStatus(ctx, owner, "")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var latest *types.Session
	for _, row := range rows {
		if row.Status == types.SessionActive {
			return row, nil
		}
		if latest == nil || row.UpdatedAt.After(latest.UpdatedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, ErrSessionNotFound
	}
	return latest, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
