package tiered

import (
	"context"
	"fmt"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/platform/apierr"
)

// Kind names a record family (session, response, assessment).
type Kind string

var (
	// ErrNotFound is returned by a Store that does not hold the record.
	ErrNotFound = fmt.Errorf("record %w", apierr.ErrNotFound)
	// ErrUnavailable is returned by a Store that cannot be reached.
	ErrUnavailable = fmt.Errorf("tier %w", apierr.ErrStoreUnavailable)
)

// Scope narrows List to one owner. Empty fields match everything.
type Scope struct {
	SubjectID string
	UserID    string
}

// Store is the contract every tier satisfies.
type Store interface {
	Get(ctx context.Context, kind Kind, id string) (schemacompat.Record, error)
	Put(ctx context.Context, kind Kind, rec schemacompat.Record) error
	Delete(ctx context.Context, kind Kind, id string) error
}

// Lister is implemented by durable tiers that can enumerate a kind.
type Lister interface {
	List(ctx context.Context, kind Kind, scope Scope) ([]schemacompat.Record, error)
}

// Purger is implemented by cache tiers that can drop everything at once.
type Purger interface {
	Purge(ctx context.Context) error
}

// Pinger is implemented by tiers that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Role int

const (
	RoleCache Role = iota
	RoleRemote
	RoleLocal
)

func (r Role) String() string {
	switch r {
	case RoleCache:
		return "cache"
	case RoleRemote:
		return "remote"
	case RoleLocal:
		return "local"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Tier is one entry in the resolver's priority list.
type Tier struct {
	Name  string
	Role  Role
	Store Store
}

// Invalidation tells other instances to drop a cached record.
type Invalidation struct {
	Kind   Kind   `json:"kind"`
	ID     string `json:"id"`
	All    bool   `json:"all,omitempty"`
	Origin string `json:"origin"`
}

type InvalidationPublisher interface {
	Publish(ctx context.Context, msg Invalidation) error
}

// ListOptions filters ListAll. Match runs after tier results are merged.
type ListOptions struct {
	Scope Scope
	Match func(schemacompat.Record) bool
}

func matchesScope(rec schemacompat.Record, scope Scope) bool {
	if scope.SubjectID != "" && rec.String("subject_id") != scope.SubjectID {
		return false
	}
	if scope.UserID != "" && rec.String("user_id") != scope.UserID {
		return false
	}
	return true
}
