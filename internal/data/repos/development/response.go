package development

import (
	"context"
	"sort"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type ResponseRepo interface {
	Get(ctx context.Context, owner types.Owner, id string) (*types.Response, error)
	Save(ctx context.Context, resp *types.Response) error
	// ListByOwner returns the owner's responses newest first.
	ListByOwner(ctx context.Context, owner types.Owner) ([]*types.Response, error)
	ListBySession(ctx context.Context, owner types.Owner, sessionID string) ([]*types.Response, error)
}

type responseRepo struct {
	r   Resolver
	log *logger.Logger
}

func NewResponseRepo(r Resolver, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{r: r, log: baseLog.With("repo", "ResponseRepo")}
}

func (repo *responseRepo) Get(ctx context.Context, owner types.Owner, id string) (*types.Response, error) {
	var resp types.Response
	ok, err := getOwned(ctx, repo.r, repo.log, KindResponse, owner, id, &resp)
	if err != nil || !ok {
		return nil, err
	}
	return &resp, nil
}

func (repo *responseRepo) Save(ctx context.Context, resp *types.Response) error {
	if resp == nil {
		return nil
	}
	return save(ctx, repo.r, KindResponse, resp)
}

func (repo *responseRepo) ListByOwner(ctx context.Context, owner types.Owner) ([]*types.Response, error) {
	rows, err := listOwned[types.Response](ctx, repo.r, repo.log, KindResponse, owner, nil)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(rows)
	return rows, nil
}

func (repo *responseRepo) ListBySession(ctx context.Context, owner types.Owner, sessionID string) ([]*types.Response, error) {
	match := func(rec schemacompat.Record) bool { return rec.String("session_id") == sessionID }
	rows, err := listOwned[types.Response](ctx, repo.r, repo.log, KindResponse, owner, match)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(rows)
	return rows, nil
}

// sortNewestFirst orders by the time the answer was last given, then id.
func sortNewestFirst(rows []*types.Response) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].UpdatedAt, rows[j].UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].ID > rows[j].ID
	})
}
