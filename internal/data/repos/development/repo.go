package development

import (
	"context"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

const (
	KindSession    tiered.Kind = "session"
	KindResponse   tiered.Kind = "response"
	KindAssessment tiered.Kind = "assessment"
)

// Kinds lists every record family, in resync order.
func Kinds() []tiered.Kind {
	return []tiered.Kind{KindSession, KindResponse, KindAssessment}
}

// Resolver is the subset of *tiered.Resolver the typed repos need.
type Resolver interface {
	Get(ctx context.Context, kind tiered.Kind, id string) (schemacompat.Record, bool, error)
	Save(ctx context.Context, kind tiered.Kind, rec schemacompat.Record) (schemacompat.Record, error)
	Delete(ctx context.Context, kind tiered.Kind, id string) error
	ListAll(ctx context.Context, kind tiered.Kind, opts tiered.ListOptions) ([]schemacompat.Record, error)
}

func ownerScope(owner types.Owner) tiered.Scope {
	return tiered.Scope{SubjectID: owner.SubjectID, UserID: owner.UserID.String()}
}

func owns(owner types.Owner, subjectID, userID string) bool {
	return subjectID == owner.SubjectID && userID == owner.UserID.String()
}

// getOwned loads kind/id into out. It reports false when the record is
// absent or belongs to a different owner.
func getOwned(ctx context.Context, r Resolver, log *logger.Logger, kind tiered.Kind, owner types.Owner, id string, out any) (bool, error) {
	rec, ok, err := r.Get(ctx, kind, id)
	if err != nil || !ok {
		return false, err
	}
	if !owns(owner, rec.String("subject_id"), rec.String("user_id")) {
		return false, nil
	}
	if err := schemacompat.Decode(rec, out); err != nil {
		log.Warn("skipping undecodable record", "kind", kind, "id", id, "error", err)
		return false, nil
	}
	return true, nil
}

func save(ctx context.Context, r Resolver, kind tiered.Kind, v any) error {
	rec, err := schemacompat.Encode(v)
	if err != nil {
		return err
	}
	_, err = r.Save(ctx, kind, rec)
	return err
}

// listOwned decodes every record of kind owned by owner. Records that no
// longer decode are skipped with a warning.
func listOwned[T any](ctx context.Context, r Resolver, log *logger.Logger, kind tiered.Kind, owner types.Owner, match func(schemacompat.Record) bool) ([]*T, error) {
	recs, err := r.ListAll(ctx, kind, tiered.ListOptions{Scope: ownerScope(owner), Match: match})
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		v := new(T)
		if err := schemacompat.Decode(rec, v); err != nil {
			log.Warn("skipping undecodable record", "kind", kind, "id", rec.ID(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
