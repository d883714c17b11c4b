package development

import (
	"context"
	"sort"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type AssessmentRepo interface {
	Get(ctx context.Context, owner types.Owner, id string) (*types.Assessment, error)
	Save(ctx context.Context, a *types.Assessment) error
	// ListByStatus returns the owner's assessments oldest first. An empty
	// status matches every assessment.
	ListByStatus(ctx context.Context, owner types.Owner, status types.AssessmentStatus) ([]*types.Assessment, error)
}

type assessmentRepo struct {
	r   Resolver
	log *logger.Logger
}

func NewAssessmentRepo(r Resolver, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{r: r, log: baseLog.With("repo", "AssessmentRepo")}
}

func (repo *assessmentRepo) Get(ctx context.Context, owner types.Owner, id string) (*types.Assessment, error) {
	var a types.Assessment
	ok, err := getOwned(ctx, repo.r, repo.log, KindAssessment, owner, id, &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

func (repo *assessmentRepo) Save(ctx context.Context, a *types.Assessment) error {
	if a == nil {
		return nil
	}
	return save(ctx, repo.r, KindAssessment, a)
}

func (repo *assessmentRepo) ListByStatus(ctx context.Context, owner types.Owner, status types.AssessmentStatus) ([]*types.Assessment, error) {
	var match func(schemacompat.Record) bool
	if status != "" {
		match = func(rec schemacompat.Record) bool { return rec.String("status") == string(status) }
	}
	rows, err := listOwned[types.Assessment](ctx, repo.r, repo.log, KindAssessment, owner, match)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}
