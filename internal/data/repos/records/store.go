package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

// Store is a gorm-backed tier. The same implementation serves the remote
// Postgres store and the device-local SQLite store.
type Store interface {
	tiered.Store
	tiered.Lister
	tiered.Pinger
}

// payloadRow reads the payload as raw bytes so one corrupt document cannot
// fail a whole scan.
type payloadRow struct {
	ID      string
	Payload []byte
}

type recordStore struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewRecordStore(db *gorm.DB, baseLog *logger.Logger, tier string) Store {
	repoLog := baseLog.With("repo", "RecordStore", "tier", tier)
	return &recordStore{db: db, log: repoLog, now: time.Now}
}

func (s *recordStore) Get(ctx context.Context, kind tiered.Kind, id string) (schemacompat.Record, error) {
	var rows []payloadRow
	err := s.db.WithContext(ctx).
		Model(&types.StoredRecord{}).
		Select("id", "payload").
		Where("kind = ? AND id = ?", string(kind), id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, tiered.ErrNotFound
	}
	rec, err := schemacompat.Parse(rows[0].Payload)
	if err != nil {
		s.log.Warn("skipping corrupt record", "kind", kind, "id", id, "error", err)
		return nil, tiered.ErrNotFound
	}
	return rec, nil
}

func (s *recordStore) Put(ctx context.Context, kind tiered.Kind, rec schemacompat.Record) error {
	payload, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", kind, rec.ID(), err)
	}
	now := s.now().UTC()
	createdAt := now
	if ts, err := time.Parse(time.RFC3339Nano, rec.String("created_at")); err == nil {
		createdAt = ts.UTC()
	}
	row := types.StoredRecord{
		Kind:      string(kind),
		ID:        rec.ID(),
		SubjectID: rec.String("subject_id"),
		UserID:    rec.String("user_id"),
		Status:    rec.String("status"),
		Payload:   payload,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject_id", "user_id", "status", "payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *recordStore) Delete(ctx context.Context, kind tiered.Kind, id string) error {
	res := s.db.WithContext(ctx).
		Where("kind = ? AND id = ?", string(kind), id).
		Delete(&types.StoredRecord{})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return tiered.ErrNotFound
	}
	return nil
}

func (s *recordStore) List(ctx context.Context, kind tiered.Kind, scope tiered.Scope) ([]schemacompat.Record, error) {
	q := s.db.WithContext(ctx).
		Model(&types.StoredRecord{}).
		Select("id", "payload").
		Where("kind = ?", string(kind))
	if scope.SubjectID != "" {
		q = q.Where("subject_id = ?", scope.SubjectID)
	}
	if scope.UserID != "" {
		q = q.Where("user_id = ?", scope.UserID)
	}
	var rows []payloadRow
	if err := q.Order("created_at ASC, id ASC").Scan(&rows).Error; err != nil {
		return nil, classify(err)
	}
	out := make([]schemacompat.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := schemacompat.Parse(row.Payload)
		if err != nil {
			s.log.Warn("skipping corrupt record", "kind", kind, "id", row.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *recordStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// classify folds connectivity failures into tiered.ErrUnavailable so the
// resolver can tell "store down" apart from a bad statement.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", tiered.ErrUnavailable, err)
	}
	return err
}
