// Package service applies the stakeholder map rules on top of a store.
//
// Every operation acts for an auth.Principal. Authenticated users are served
// from the account store, guests from the local guest store. A map that does
// not belong to the principal is reported as models.ErrNotFound so its
// existence is never leaked.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/store"
)

var (
	ErrGuestDisabled = errors.New("guest mode is disabled")
	ErrForbidden     = errors.New("forbidden")
)

// MapService is the CRUD surface for maps, stakeholders and interactions.
type MapService struct {
	accounts store.Store
	guests   store.Store
	events   store.EventStore
	max      int
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*mapLock
}

type mapLock struct {
	sync.Mutex
	refs int
}

// NewMapService wires the stores. guests and events may be nil, which disables
// guest mode and analytics respectively.
func NewMapService(accounts, guests store.Store, events store.EventStore, max int, log zerolog.Logger) *MapService {
	if max <= 0 {
		max = models.DefaultMaxStakeholders
	}
	return &MapService{
		accounts: accounts,
		guests:   guests,
		events:   events,
		max:      max,
		log:      log,
		locks:    make(map[string]*mapLock),
	}
}

func (s *MapService) storeFor(p auth.Principal) (store.Store, error) {
	if !p.Guest {
		return s.accounts, nil
	}
	if s.guests == nil {
		return nil, ErrGuestDisabled
	}
	return s.guests, nil
}

// lock serializes read-modify-write cycles on one map.
func (s *MapService) lock(mapID string) func() {
	s.mu.Lock()
	l, ok := s.locks[mapID]
	if !ok {
		l = &mapLock{}
		s.locks[mapID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, mapID)
		}
		s.mu.Unlock()
	}
}

// record is best effort: analytics never fail the request.
func (s *MapService) record(ctx context.Context, p auth.Principal, name, mapID string) {
	if s.events == nil {
		return
	}
	if err := s.events.RecordEvent(ctx, models.NewEvent(p.AnalyticsID(), name, mapID)); err != nil {
		s.log.Warn().Err(err).Str("event", name).Msg("failed to record analytics event")
	}
}

func (s *MapService) ListMaps(ctx context.Context, p auth.Principal, includeArchived bool) ([]models.MapSummary, error) {
	st, err := s.storeFor(p)
	if err != nil {
		return nil, err
	}
	maps, err := st.ListMaps(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.MapSummary, 0, len(maps))
	for i := range maps {
		if maps[i].Archived && !includeArchived {
			continue
		}
		summaries = append(summaries, maps[i].Summary())
	}
	return summaries, nil
}

func (s *MapService) GetMap(ctx context.Context, p auth.Principal, mapID string) (*models.StakeholderMap, error) {
	st, err := s.storeFor(p)
	if err != nil {
		return nil, err
	}
	return st.GetMap(ctx, p.ID, mapID)
}

func (s *MapService) Matrix(ctx context.Context, p auth.Principal, mapID string) (models.Matrix, error) {
	m, err := s.GetMap(ctx, p, mapID)
	if err != nil {
		return models.Matrix{}, err
	}
	return m.Matrix(), nil
}

func (s *MapService) CreateMap(ctx context.Context, p auth.Principal, in models.MapInput) (*models.StakeholderMap, error) {
	st, err := s.storeFor(p)
	if err != nil {
		return nil, err
	}
	m, err := models.NewStakeholderMap(in, p.ID)
	if err != nil {
		return nil, err
	}
	if err := st.SaveMap(ctx, m); err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}
	s.record(ctx, p, models.EventMapCreated, m.ID)
	return m, nil
}

// mutate loads a map, applies fn and saves the result under the map lock.
func (s *MapService) mutate(ctx context.Context, p auth.Principal, mapID string, fn func(m *models.StakeholderMap) error) (*models.StakeholderMap, error) {
	st, err := s.storeFor(p)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(mapID)
	defer unlock()

	m, err := st.GetMap(ctx, p.ID, mapID)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	m.Touch()
	if err := m.Validate(s.max); err != nil {
		return nil, err
	}
	if err := st.SaveMap(ctx, m); err != nil {
		return nil, fmt.Errorf("save map %s: %w", mapID, err)
	}
	return m, nil
}

func (s *MapService) UpdateMap(ctx context.Context, p auth.Principal, mapID string, in models.MapInput) (*models.StakeholderMap, error) {
	m, err := s.mutate(ctx, p, mapID, func(m *models.StakeholderMap) error {
		return m.Apply(in)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, models.EventMapUpdated, mapID)
	return m, nil
}

func (s *MapService) DeleteMap(ctx context.Context, p auth.Principal, mapID string) error {
	st, err := s.storeFor(p)
	if err != nil {
		return err
	}
	unlock := s.lock(mapID)
	defer unlock()
	if err := st.DeleteMap(ctx, p.ID, mapID); err != nil {
		return err
	}
	s.record(ctx, p, models.EventMapDeleted, mapID)
	return nil
}

func (s *MapService) DuplicateMap(ctx context.Context, p auth.Principal, mapID string) (*models.StakeholderMap, error) {
	st, err := s.storeFor(p)
	if err != nil {
		return nil, err
	}
	src, err := st.GetMap(ctx, p.ID, mapID)
	if err != nil {
		return nil, err
	}
	c := src.Clone(p.ID)
	if err := st.SaveMap(ctx, c); err != nil {
		return nil, fmt.Errorf("duplicate map %s: %w", mapID, err)
	}
	s.record(ctx, p, models.EventMapDuplicated, c.ID)
	return c, nil
}

func (s *MapService) AddStakeholder(ctx context.Context, p auth.Principal, mapID string, in models.StakeholderInput) (*models.Stakeholder, error) {
	var added *models.Stakeholder
	_, err := s.mutate(ctx, p, mapID, func(m *models.StakeholderMap) error {
		sh, err := models.NewStakeholder(in, p.ID)
		if err != nil {
			return err
		}
		if err := m.AddStakeholder(sh, s.max); err != nil {
			return err
		}
		added = m.Stakeholder(sh.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, models.EventStakeholderAdded, mapID)
	return added, nil
}

func (s *MapService) UpdateStakeholder(ctx context.Context, p auth.Principal, mapID, stakeholderID string, in models.StakeholderInput) (*models.Stakeholder, error) {
	var updated *models.Stakeholder
	_, err := s.mutate(ctx, p, mapID, func(m *models.StakeholderMap) error {
		sh := m.Stakeholder(stakeholderID)
		if sh == nil {
			return models.ErrNotFound
		}
		if err := sh.Apply(in); err != nil {
			return err
		}
		updated = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, models.EventStakeholderUpdated, mapID)
	return updated, nil
}

func (s *MapService) RemoveStakeholder(ctx context.Context, p auth.Principal, mapID, stakeholderID string) error {
	_, err := s.mutate(ctx, p, mapID, func(m *models.StakeholderMap) error {
		if !m.RemoveStakeholder(stakeholderID) {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, models.EventStakeholderRemoved, mapID)
	return nil
}

func (s *MapService) LogInteraction(ctx context.Context, p auth.Principal, mapID, stakeholderID string, in models.InteractionInput) (*models.Interaction, error) {
	var logged models.Interaction
	_, err := s.mutate(ctx, p, mapID, func(m *models.StakeholderMap) error {
		sh := m.Stakeholder(stakeholderID)
		if sh == nil {
			return models.ErrNotFound
		}
		i := models.NewInteraction(in, p.ID)
		sh.AddInteraction(i)
		logged = *i
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, models.EventInteractionLogged, mapID)
	return &logged, nil
}

func (s *MapService) RemoveInteraction(ctx context.Context, p auth.Principal, mapID, stakeholderID, interactionID string) error {
	_, err := s.mutate(ctx, p, mapID, func(m *models.StakeholderMap) error {
		sh := m.Stakeholder(stakeholderID)
		if sh == nil || !sh.RemoveInteraction(interactionID) {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, models.EventInteractionRemoved, mapID)
	return nil
}
