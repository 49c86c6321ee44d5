// Package store persists stakeholder map aggregates.
//
// GormStore backs authenticated accounts with a relational database; FileStore
// keeps guest data in one JSON document per guest on local disk.
package store

import (
	"context"
	"errors"

	"github.com/andrewpaige1/stakemap/models"
)

// ErrNotFound is returned when a map does not exist for the given owner.
var ErrNotFound = models.ErrNotFound

// ErrIDTaken is returned by SaveMap when an id in the aggregate already
// belongs to another owner's data.
var ErrIDTaken = errors.New("id already taken")

// Store loads and saves whole maps, including their stakeholders and interactions.
type Store interface {
	ListMaps(ctx context.Context, ownerID string) ([]models.StakeholderMap, error)
	GetMap(ctx context.Context, ownerID, mapID string) (*models.StakeholderMap, error)
	// SaveMap upserts the aggregate; stakeholders and interactions missing from m are removed.
	SaveMap(ctx context.Context, m *models.StakeholderMap) error
	DeleteMap(ctx context.Context, ownerID, mapID string) error
	DeleteOwnerData(ctx context.Context, ownerID string) error
	Close() error
}

type UserStore interface {
	SyncUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type EventStore interface {
	RecordEvent(ctx context.Context, e *models.Event) error
	CountEvents(ctx context.Context) (map[string]int64, error)
}
