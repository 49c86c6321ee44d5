package models

import "time"

// Analytics event names.
const (
	EventMapCreated         = "map_created"
	EventMapUpdated         = "map_updated"
	EventMapDeleted         = "map_deleted"
	EventMapDuplicated      = "map_duplicated"
	EventStakeholderAdded   = "stakeholder_added"
	EventStakeholderUpdated = "stakeholder_updated"
	EventStakeholderRemoved = "stakeholder_removed"
	EventInteractionLogged  = "interaction_logged"
	EventInteractionRemoved = "interaction_removed"
	EventDataImported       = "data_imported"
	EventDataCleared        = "data_cleared"
	EventGuestClaimed       = "guest_claimed"
)

// Event is a usage analytics record
type Event struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	OwnerID   string    `gorm:"not null;index;size:80" json:"ownerId"`
	Name      string    `gorm:"not null;index;size:40" json:"name"`
	MapID     string    `gorm:"size:32" json:"mapId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewEvent(ownerID, name, mapID string) *Event {
	return &Event{
		ID:        NewID(),
		OwnerID:   ownerID,
		Name:      name,
		MapID:     mapID,
		CreatedAt: now(),
	}
}
