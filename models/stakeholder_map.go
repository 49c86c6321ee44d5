package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	MaxMapNameLength        = 100
	MaxMapDescriptionLength = 1000
	MaxProjectFieldLength   = 200
)

const defaultMapName = "Untitled map"

// Project holds the metadata of the project a map belongs to.
type Project struct {
	Name      string     `gorm:"size:200" json:"name"`
	Phase     string     `gorm:"size:200" json:"phase"`
	Goal      string     `gorm:"size:200" json:"goal"`
	StartDate *time.Time `json:"startDate,omitempty"`
}

// ViewSettings controls how the quadrant matrix is rendered.
type ViewSettings struct {
	ShowLabels bool       `json:"showLabels"`
	ColorBy    string     `json:"colorBy"`
	Zoom       float64    `json:"zoom"`
	Categories []Category `json:"categories"`
}

var colorModes = map[string]bool{"category": true, "relationship": true, "quadrant": true}

// DefaultViewSettings is applied to new maps.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{ShowLabels: true, ColorBy: "category", Zoom: 1, Categories: []Category{}}
}

func (v ViewSettings) normalized() ViewSettings {
	if !colorModes[v.ColorBy] {
		v.ColorBy = "category"
	}
	if v.Zoom <= 0 || v.Zoom != v.Zoom {
		v.Zoom = 1
	}
	if v.Zoom < 0.25 {
		v.Zoom = 0.25
	}
	if v.Zoom > 4 {
		v.Zoom = 4
	}
	cats := make([]Category, 0, len(v.Categories))
	seen := map[Category]bool{}
	for _, c := range v.Categories {
		c = ParseCategory(string(c))
		if !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	v.Categories = cats
	return v
}

// StakeholderMap is a named, owned collection of stakeholders
type StakeholderMap struct {
	ID           string        `gorm:"primaryKey;size:32" json:"id"`
	Name         string        `gorm:"not null;size:100" json:"name"`
	Description  string        `gorm:"size:1000" json:"description"`
	Project      Project       `gorm:"embedded;embeddedPrefix:project_" json:"project"`
	Stakeholders []Stakeholder `gorm:"foreignKey:MapID;constraint:OnDelete:CASCADE" json:"stakeholders"`
	ViewSettings ViewSettings  `gorm:"serializer:json" json:"viewSettings"`
	OwnerID      string        `gorm:"not null;index;size:64" json:"ownerId"`
	Archived     bool          `gorm:"default:false" json:"archived"`
	CreatedAt    time.Time     `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// MapInput carries optional fields for creating or updating a map.
type MapInput struct {
	Name         *string       `json:"name,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Project      *Project      `json:"project,omitempty"`
	ViewSettings *ViewSettings `json:"viewSettings,omitempty"`
	Archived     *bool         `json:"archived,omitempty"`
}

func NewStakeholderMap(in MapInput, ownerID string) (*StakeholderMap, error) {
	ts := now()
	m := &StakeholderMap{
		ID:           NewID(),
		Name:         defaultMapName,
		Stakeholders: []Stakeholder{},
		ViewSettings: DefaultViewSettings(),
		OwnerID:      ownerID,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := m.Apply(in); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StakeholderMap) Apply(in MapInput) error {
	if in.Name != nil {
		if err := m.SetName(*in.Name); err != nil {
			return err
		}
	}
	if in.Description != nil {
		m.SetDescription(*in.Description)
	}
	if in.Project != nil {
		m.SetProject(*in.Project)
	}
	if in.ViewSettings != nil {
		m.SetViewSettings(*in.ViewSettings)
	}
	if in.Archived != nil {
		m.SetArchived(*in.Archived)
	}
	m.touch()
	return nil
}

func (m *StakeholderMap) touch() {
	m.UpdatedAt = now()
}

// Touch marks the map as modified after a change to one of its stakeholders.
func (m *StakeholderMap) Touch() {
	m.touch()
}

func (m *StakeholderMap) SetName(name string) error {
	name = capText(name, MaxMapNameLength)
	if name == "" {
		return fmt.Errorf("%w: map name is required", ErrInvalid)
	}
	m.Name = name
	m.touch()
	return nil
}

func (m *StakeholderMap) SetDescription(d string) {
	m.Description = capText(d, MaxMapDescriptionLength)
	m.touch()
}

func (m *StakeholderMap) SetProject(p Project) {
	m.Project = Project{
		Name:      capText(p.Name, MaxProjectFieldLength),
		Phase:     capText(p.Phase, MaxProjectFieldLength),
		Goal:      capText(p.Goal, MaxProjectFieldLength),
		StartDate: p.StartDate,
	}
	m.touch()
}

func (m *StakeholderMap) SetViewSettings(v ViewSettings) {
	m.ViewSettings = v.normalized()
	m.touch()
}

func (m *StakeholderMap) SetArchived(archived bool) {
	m.Archived = archived
	m.touch()
}

// Stakeholder returns the contained stakeholder with the given id, or nil.
func (m *StakeholderMap) Stakeholder(id string) *Stakeholder {
	for i := range m.Stakeholders {
		if m.Stakeholders[i].ID == id {
			return &m.Stakeholders[i]
		}
	}
	return nil
}

// AddStakeholder appends s, binding it to this map.
func (m *StakeholderMap) AddStakeholder(s *Stakeholder, max int) error {
	if max <= 0 {
		max = DefaultMaxStakeholders
	}
	if len(m.Stakeholders) >= max {
		return fmt.Errorf("%w: limit is %d", ErrMapFull, max)
	}
	if s.MapID != "" && s.MapID != m.ID {
		return fmt.Errorf("%w: %s is bound to map %s", ErrMapMismatch, s.ID, s.MapID)
	}
	if m.Stakeholder(s.ID) != nil {
		return fmt.Errorf("%w: duplicate stakeholder id %s", ErrInvalid, s.ID)
	}
	s.MapID = m.ID
	s.Normalize()
	m.Stakeholders = append(m.Stakeholders, *s)
	m.reindex()
	m.touch()
	return nil
}

func (m *StakeholderMap) RemoveStakeholder(id string) bool {
	for i := range m.Stakeholders {
		if m.Stakeholders[i].ID == id {
			m.Stakeholders = append(m.Stakeholders[:i], m.Stakeholders[i+1:]...)
			m.reindex()
			m.touch()
			return true
		}
	}
	return false
}

func (m *StakeholderMap) reindex() {
	for i := range m.Stakeholders {
		m.Stakeholders[i].Position = i
	}
}

// Validate checks the size limit, that every stakeholder points back at the
// map, and that no id appears twice.
func (m *StakeholderMap) Validate(max int) error {
	if max <= 0 {
		max = DefaultMaxStakeholders
	}
	if m.Name == "" {
		return fmt.Errorf("%w: map name is required", ErrInvalid)
	}
	if len(m.Stakeholders) > max {
		return fmt.Errorf("%w: %d stakeholders exceeds limit of %d", ErrMapFull, len(m.Stakeholders), max)
	}
	seen := make(map[string]bool, len(m.Stakeholders))
	interactions := map[string]bool{}
	for _, s := range m.Stakeholders {
		if s.MapID != m.ID {
			return fmt.Errorf("%w: %s is bound to map %s", ErrMapMismatch, s.ID, s.MapID)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate stakeholder id %s", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
		for _, it := range s.Interactions {
			if interactions[it.ID] {
				return fmt.Errorf("%w: duplicate interaction id %s", ErrInvalid, it.ID)
			}
			interactions[it.ID] = true
		}
	}
	return nil
}

// Normalize re-applies field rules to the map and everything it contains.
// Stakeholders with an empty MapID are adopted; foreign ones are left for Validate to reject.
func (m *StakeholderMap) Normalize() {
	if m.ID == "" {
		m.ID = NewID()
	}
	m.Name = capText(m.Name, MaxMapNameLength)
	if m.Name == "" {
		m.Name = defaultMapName
	}
	m.Description = capText(m.Description, MaxMapDescriptionLength)
	m.Project.Name = capText(m.Project.Name, MaxProjectFieldLength)
	m.Project.Phase = capText(m.Project.Phase, MaxProjectFieldLength)
	m.Project.Goal = capText(m.Project.Goal, MaxProjectFieldLength)
	m.ViewSettings = m.ViewSettings.normalized()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if m.Stakeholders == nil {
		m.Stakeholders = []Stakeholder{}
	}
	for i := range m.Stakeholders {
		if m.Stakeholders[i].MapID == "" {
			m.Stakeholders[i].MapID = m.ID
		}
		m.Stakeholders[i].Normalize()
	}
	m.reindex()
}

func (m *StakeholderMap) BeforeSave(tx *gorm.DB) error {
	m.Normalize()
	return nil
}

// Matrix groups the map's stakeholders by quadrant.
type Matrix struct {
	MapID     string                     `json:"mapId"`
	Threshold int                        `json:"threshold"`
	Quadrants map[Quadrant][]Stakeholder `json:"quadrants"`
}

func (m *StakeholderMap) Matrix() Matrix {
	mx := Matrix{
		MapID:     m.ID,
		Threshold: QuadrantThreshold,
		Quadrants: make(map[Quadrant][]Stakeholder, len(Quadrants)),
	}
	for _, q := range Quadrants {
		mx.Quadrants[q] = []Stakeholder{}
	}
	for _, s := range m.Stakeholders {
		if len(m.ViewSettings.Categories) > 0 && !containsCategory(m.ViewSettings.Categories, s.Category) {
			continue
		}
		q := QuadrantFor(s.Influence, s.Impact)
		mx.Quadrants[q] = append(mx.Quadrants[q], s)
	}
	return mx
}

func containsCategory(cs []Category, c Category) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

// MapSummary is the list view of a map.
type MapSummary struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	ProjectName      string           `json:"projectName"`
	Archived         bool             `json:"archived"`
	StakeholderCount int              `json:"stakeholderCount"`
	QuadrantCounts   map[Quadrant]int `json:"quadrantCounts"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (m *StakeholderMap) Summary() MapSummary {
	counts := make(map[Quadrant]int, len(Quadrants))
	for _, q := range Quadrants {
		counts[q] = 0
	}
	for _, s := range m.Stakeholders {
		counts[QuadrantFor(s.Influence, s.Impact)]++
	}
	return MapSummary{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		ProjectName:      m.Project.Name,
		Archived:         m.Archived,
		StakeholderCount: len(m.Stakeholders),
		QuadrantCounts:   counts,
		UpdatedAt:        m.UpdatedAt,
	}
}

// Clone deep-copies the map under fresh ids for ownerID.
func (m *StakeholderMap) Clone(ownerID string) *StakeholderMap {
	ts := now()
	c := *m
	c.ID = NewID()
	c.Name = capText(m.Name+" (copy)", MaxMapNameLength)
	c.OwnerID = ownerID
	c.Archived = false
	c.CreatedAt = ts
	c.UpdatedAt = ts
	c.ViewSettings.Categories = append([]Category{}, m.ViewSettings.Categories...)
	c.Stakeholders = make([]Stakeholder, len(m.Stakeholders))
	for i, s := range m.Stakeholders {
		s.ID = NewID()
		s.MapID = c.ID
		s.CreatedAt = ts
		s.UpdatedAt = ts
		ints := make([]Interaction, len(s.Interactions))
		for j, it := range s.Interactions {
			it.ID = NewID()
			it.StakeholderID = s.ID
			ints[j] = it
		}
		s.Interactions = ints
		c.Stakeholders[i] = s
	}
	return &c
}

// Copy deep-copies the map keeping every id.
func (m *StakeholderMap) Copy() *StakeholderMap {
	c := *m
	c.ViewSettings.Categories = append([]Category(nil), m.ViewSettings.Categories...)
	if m.Stakeholders != nil {
		c.Stakeholders = make([]Stakeholder, len(m.Stakeholders))
		for i, s := range m.Stakeholders {
			if s.Interactions != nil {
				s.Interactions = append([]Interaction{}, s.Interactions...)
			}
			c.Stakeholders[i] = s
		}
	}
	return &c
}

// Rekey assigns fresh ids to the map and everything it contains, keeping all other fields.
func (m *StakeholderMap) Rekey() {
	m.ID = NewID()
	for i := range m.Stakeholders {
		s := &m.Stakeholders[i]
		s.ID = NewID()
		s.MapID = m.ID
		for j := range s.Interactions {
			s.Interactions[j].ID = NewID()
			s.Interactions[j].StakeholderID = s.ID
		}
	}
}
