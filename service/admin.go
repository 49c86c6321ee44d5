package service

import (
	"context"

	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/store"
)

// Stats is the admin overview of accounts and usage.
type Stats struct {
	Users  int              `json:"users"`
	Admins int              `json:"admins"`
	Events map[string]int64 `json:"events"`
}

type AdminService struct {
	users  store.UserStore
	events store.EventStore
}

func NewAdminService(users store.UserStore, events store.EventStore) *AdminService {
	return &AdminService{users: users, events: events}
}

func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Users: len(users), Events: map[string]int64{}}
	for _, u := range users {
		if u.Role == models.RoleAdmin {
			stats.Admins++
		}
	}
	if s.events == nil {
		return stats, nil
	}
	counts, err := s.events.CountEvents(ctx)
	if err != nil {
		return nil, err
	}
	stats.Events = counts
	return stats, nil
}
