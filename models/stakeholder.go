package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Free-text limits, counted in runes.
const (
	MaxNameLength         = 100
	MaxRoleLength         = 100
	MaxOrganizationLength = 100
	MaxContactLength      = 200
	MaxNotesLength        = 2000
	MaxStrategyLength     = 1000
)

const defaultStakeholderName = "New stakeholder"

// Stakeholder is a tracked person or organization scored on three axes
type Stakeholder struct {
	ID           string   `gorm:"primaryKey;size:32" json:"id"`
	MapID        string   `gorm:"not null;index;size:32" json:"mapId"`
	Position     int      `gorm:"not null" json:"-"`
	Name         string   `gorm:"not null;size:100" json:"name"`
	Influence    int      `gorm:"not null" json:"influence"`
	Impact       int      `gorm:"not null" json:"impact"`
	Relationship int      `gorm:"not null" json:"relationship"`
	Category     Category `gorm:"not null;size:20" json:"category"`
	Quadrant     Quadrant `gorm:"not null;size:20;index" json:"quadrant"`

	Role         string `gorm:"size:100" json:"role"`
	Organization string `gorm:"size:100" json:"organization"`
	Contact      string `gorm:"size:200" json:"contact"`
	Notes        string `gorm:"size:2000" json:"notes"`
	Strategy     string `gorm:"size:1000" json:"strategy"`

	Interactions []Interaction `gorm:"foreignKey:StakeholderID;constraint:OnDelete:CASCADE" json:"interactions"`

	CreatedBy string    `gorm:"size:64" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// StakeholderInput carries optional fields for creating or updating a Stakeholder.
// Scores are floats so fractional input can be rounded rather than rejected.
type StakeholderInput struct {
	Name         *string  `json:"name,omitempty"`
	Influence    *float64 `json:"influence,omitempty"`
	Impact       *float64 `json:"impact,omitempty"`
	Relationship *float64 `json:"relationship,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Role         *string  `json:"role,omitempty"`
	Organization *string  `json:"organization,omitempty"`
	Contact      *string  `json:"contact,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Strategy     *string  `json:"strategy,omitempty"`
}

// NewStakeholder builds a stakeholder with defaults for every missing field.
func NewStakeholder(in StakeholderInput, createdBy string) (*Stakeholder, error) {
	ts := now()
	s := &Stakeholder{
		ID:           NewID(),
		Name:         defaultStakeholderName,
		Influence:    DefaultScore,
		Impact:       DefaultScore,
		Relationship: DefaultScore,
		Category:     CategoryOther,
		Interactions: []Interaction{},
		CreatedBy:    createdBy,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.Apply(in); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply copies the non-nil fields of in through the matching setters.
func (s *Stakeholder) Apply(in StakeholderInput) error {
	if in.Name != nil {
		if err := s.SetName(*in.Name); err != nil {
			return err
		}
	}
	if in.Influence != nil {
		s.SetInfluence(*in.Influence)
	}
	if in.Impact != nil {
		s.SetImpact(*in.Impact)
	}
	if in.Relationship != nil {
		s.SetRelationship(*in.Relationship)
	}
	if in.Category != nil {
		s.SetCategory(*in.Category)
	}
	if in.Role != nil {
		s.SetRole(*in.Role)
	}
	if in.Organization != nil {
		s.SetOrganization(*in.Organization)
	}
	if in.Contact != nil {
		s.SetContact(*in.Contact)
	}
	if in.Notes != nil {
		s.SetNotes(*in.Notes)
	}
	if in.Strategy != nil {
		s.SetStrategy(*in.Strategy)
	}
	s.touch()
	return nil
}

func (s *Stakeholder) touch() {
	s.Quadrant = QuadrantFor(s.Influence, s.Impact)
	s.UpdatedAt = now()
}

func (s *Stakeholder) SetName(name string) error {
	name = capText(name, MaxNameLength)
	if name == "" {
		return fmt.Errorf("%w: stakeholder name is required", ErrInvalid)
	}
	s.Name = name
	s.touch()
	return nil
}

func (s *Stakeholder) SetInfluence(v float64) {
	s.Influence = ClampScore(v)
	s.touch()
}

func (s *Stakeholder) SetImpact(v float64) {
	s.Impact = ClampScore(v)
	s.touch()
}

func (s *Stakeholder) SetRelationship(v float64) {
	s.Relationship = ClampScore(v)
	s.touch()
}

func (s *Stakeholder) SetCategory(c string) {
	s.Category = ParseCategory(strings.ToLower(strings.TrimSpace(c)))
	s.touch()
}

func (s *Stakeholder) SetRole(v string) {
	s.Role = capText(v, MaxRoleLength)
	s.touch()
}

func (s *Stakeholder) SetOrganization(v string) {
	s.Organization = capText(v, MaxOrganizationLength)
	s.touch()
}

func (s *Stakeholder) SetContact(v string) {
	s.Contact = capText(v, MaxContactLength)
	s.touch()
}

func (s *Stakeholder) SetNotes(v string) {
	s.Notes = capText(v, MaxNotesLength)
	s.touch()
}

func (s *Stakeholder) SetStrategy(v string) {
	s.Strategy = capText(v, MaxStrategyLength)
	s.touch()
}

// Normalize re-applies every field rule without changing UpdatedAt unless it is unset.
// Data read from storage or an import file passes through here.
func (s *Stakeholder) Normalize() {
	if s.ID == "" {
		s.ID = NewID()
	}
	s.Name = capText(s.Name, MaxNameLength)
	if s.Name == "" {
		s.Name = defaultStakeholderName
	}
	s.Influence = normalizeScore(s.Influence)
	s.Impact = normalizeScore(s.Impact)
	s.Relationship = normalizeScore(s.Relationship)
	s.Category = ParseCategory(string(s.Category))
	s.Quadrant = QuadrantFor(s.Influence, s.Impact)
	s.Role = capText(s.Role, MaxRoleLength)
	s.Organization = capText(s.Organization, MaxOrganizationLength)
	s.Contact = capText(s.Contact, MaxContactLength)
	s.Notes = capText(s.Notes, MaxNotesLength)
	s.Strategy = capText(s.Strategy, MaxStrategyLength)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if s.Interactions == nil {
		s.Interactions = []Interaction{}
	}
	for i := range s.Interactions {
		s.Interactions[i].StakeholderID = s.ID
		s.Interactions[i].Normalize()
	}
}

// UnmarshalJSON accepts fractional scores and rounds them like the setters do.
func (s *Stakeholder) UnmarshalJSON(data []byte) error {
	type plain Stakeholder
	aux := struct {
		*plain
		Influence    *float64 `json:"influence"`
		Impact       *float64 `json:"impact"`
		Relationship *float64 `json:"relationship"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Influence = decodedScore(aux.Influence)
	s.Impact = decodedScore(aux.Impact)
	s.Relationship = decodedScore(aux.Relationship)
	return nil
}

func decodedScore(v *float64) int {
	if v == nil {
		return 0
	}
	return ClampScore(*v)
}

// zero means the score was never set
func normalizeScore(v int) int {
	if v == 0 {
		return DefaultScore
	}
	return ClampScore(float64(v))
}

func (s *Stakeholder) BeforeSave(tx *gorm.DB) error {
	s.Normalize()
	return nil
}

// AddInteraction binds i to the stakeholder and keeps interactions ordered by date.
func (s *Stakeholder) AddInteraction(i *Interaction) {
	i.StakeholderID = s.ID
	i.Normalize()
	s.Interactions = append(s.Interactions, *i)
	sort.SliceStable(s.Interactions, func(a, b int) bool {
		return s.Interactions[a].Date.Before(s.Interactions[b].Date)
	})
	s.touch()
}

func (s *Stakeholder) RemoveInteraction(id string) bool {
	for i := range s.Interactions {
		if s.Interactions[i].ID == id {
			s.Interactions = append(s.Interactions[:i], s.Interactions[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

// LastInteraction returns the most recent interaction by date, or nil.
func (s *Stakeholder) LastInteraction() *Interaction {
	var last *Interaction
	for i := range s.Interactions {
		if last == nil || s.Interactions[i].Date.After(last.Date) {
			last = &s.Interactions[i]
		}
	}
	return last
}
