package models

import (
	"time"

	"gorm.io/gorm"
)

// InteractionType describes how a stakeholder was engaged.
type InteractionType string

const (
	InteractionMeeting  InteractionType = "meeting"
	InteractionCall     InteractionType = "call"
	InteractionEmail    InteractionType = "email"
	InteractionWorkshop InteractionType = "workshop"
	InteractionEvent    InteractionType = "event"
	InteractionNote     InteractionType = "note"
	InteractionOther    InteractionType = "other"
)

const MaxNoteLength = 2000

var interactionTypes = map[InteractionType]bool{
	InteractionMeeting:  true,
	InteractionCall:     true,
	InteractionEmail:    true,
	InteractionWorkshop: true,
	InteractionEvent:    true,
	InteractionNote:     true,
	InteractionOther:    true,
}

func ParseInteractionType(s string) InteractionType {
	t := InteractionType(s)
	if interactionTypes[t] {
		return t
	}
	return InteractionOther
}

// Interaction is a logged touchpoint with a stakeholder
type Interaction struct {
	ID            string          `gorm:"primaryKey;size:32" json:"id"`
	StakeholderID string          `gorm:"not null;index;size:32" json:"stakeholderId"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Note          string          `gorm:"size:2000" json:"note"`
	Type          InteractionType `gorm:"not null;size:20" json:"type"`
	CreatedBy     string          `gorm:"size:64" json:"createdBy"`
	CreatedAt     time.Time       `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// InteractionInput carries optional fields for creating or updating an Interaction.
type InteractionInput struct {
	Date *time.Time `json:"date,omitempty"`
	Note *string    `json:"note,omitempty"`
	Type *string    `json:"type,omitempty"`
}

func NewInteraction(in InteractionInput, createdBy string) *Interaction {
	ts := now()
	i := &Interaction{
		ID:        NewID(),
		Date:      ts,
		Type:      InteractionNote,
		CreatedBy: createdBy,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	i.Apply(in)
	return i
}

// Apply copies the non-nil fields of in, normalizing each.
func (i *Interaction) Apply(in InteractionInput) {
	if in.Date != nil && !in.Date.IsZero() {
		i.Date = in.Date.UTC()
	}
	if in.Note != nil {
		i.Note = capText(*in.Note, MaxNoteLength)
	}
	if in.Type != nil {
		i.Type = ParseInteractionType(*in.Type)
	}
	i.UpdatedAt = now()
}

func (i *Interaction) Normalize() {
	if i.ID == "" {
		i.ID = NewID()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now()
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.CreatedAt
	}
	if i.Date.IsZero() {
		i.Date = i.CreatedAt
	}
	i.Note = capText(i.Note, MaxNoteLength)
	i.Type = ParseInteractionType(string(i.Type))
}

func (i *Interaction) BeforeSave(tx *gorm.DB) error {
	i.Normalize()
	return nil
}
