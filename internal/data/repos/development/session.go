package development

import (
	"context"
	"sort"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type SessionRepo interface {
	Get(ctx context.Context, owner types.Owner, id string) (*types.Session, error)
	Save(ctx context.Context, s *types.Session) error
	// ListByStatus returns the owner's sessions oldest first. An empty status
	// matches every session.
	ListByStatus(ctx context.Context, owner types.Owner, status types.SessionStatus) ([]*types.Session, error)
}

type sessionRepo struct {
	r   Resolver
	log *logger.Logger
}

func NewSessionRepo(r Resolver, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{r: r, log: baseLog.With("repo", "SessionRepo")}
}

func (repo *sessionRepo) Get(ctx context.Context, owner types.Owner, id string) (*types.Session, error) {
	var s types.Session
	ok, err := getOwned(ctx, repo.r, repo.log, KindSession, owner, id, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (repo *sessionRepo) Save(ctx context.Context, s *types.Session) error {
	if s == nil {
		return nil
	}
	return save(ctx, repo.r, KindSession, s)
}

func (repo *sessionRepo) ListByStatus(ctx context.Context, owner types.Owner, status types.SessionStatus) ([]*types.Session, error) {
	var match func(schemacompat.Record) bool
	if status != "" {
		match = func(rec schemacompat.Record) bool { return rec.String("status") == string(status) }
	}
	rows, err := listOwned[types.Session](ctx, repo.r, repo.log, KindSession, owner, match)
	if err != nil {
		return nil, err
	}
	SortSessionsOldestFirst(rows)
	return rows, nil
}

// SortSessionsOldestFirst orders by created_at, then id.
func SortSessionsOldestFirst(rows []*types.Session) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}
