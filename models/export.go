package models

import "time"

// ExportVersion is bumped when the export document layout changes.
const ExportVersion = 1

// Export is the portable document produced by a data export
type Export struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	OwnerID    string           `json:"ownerId"`
	Maps       []StakeholderMap `json:"maps"`
}

func NewExport(ownerID string, maps []StakeholderMap) *Export {
	if maps == nil {
		maps = []StakeholderMap{}
	}
	return &Export{
		Version:    ExportVersion,
		ExportedAt: now(),
		OwnerID:    ownerID,
		Maps:       maps,
	}
}
