package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/stakemap/config"
	"github.com/andrewpaige1/stakemap/models"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := config.Connect("sqlite", "file:"+models.NewID()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	s := NewGormStore(db)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

// buildMap returns a map with n stakeholders, each holding k interactions.
func buildMap(t *testing.T, ownerID string, n, k int) *models.StakeholderMap {
	t.Helper()
	name := "Map " + models.NewID()[:6]
	m, err := models.NewStakeholderMap(models.MapInput{Name: &name}, ownerID)
	require.NoError(t, err)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		sname := fmt.Sprintf("Stakeholder %d", i)
		infl := float64(i + 1)
		s, err := models.NewStakeholder(models.StakeholderInput{Name: &sname, Influence: &infl}, ownerID)
		require.NoError(t, err)
		for j := 0; j < k; j++ {
			date := base.Add(time.Duration(j) * time.Hour)
			note := fmt.Sprintf("note %d-%d", i, j)
			s.AddInteraction(models.NewInteraction(models.InteractionInput{Date: &date, Note: &note}, ownerID))
		}
		require.NoError(t, m.AddStakeholder(s, 100))
	}
	return m
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store, owner, other string) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		m := buildMap(t, owner, 3, 2)
		require.NoError(t, s.SaveMap(ctx, m))

		got, err := s.GetMap(ctx, owner, m.ID)
		require.NoError(t, err)
		require.Equal(t, m.Name, got.Name)
		require.Len(t, got.Stakeholders, 3)
		for i, st := range got.Stakeholders {
			require.Equal(t, fmt.Sprintf("Stakeholder %d", i), st.Name)
			require.Equal(t, m.ID, st.MapID)
			require.Len(t, st.Interactions, 2)
			require.Equal(t, fmt.Sprintf("note %d-0", i), st.Interactions[0].Note)
		}
		require.NoError(t, got.Validate(100))
	})

	t.Run("save drops removed children", func(t *testing.T) {
		s := newStore(t)
		m := buildMap(t, owner, 3, 1)
		require.NoError(t, s.SaveMap(ctx, m))

		removed := m.Stakeholders[1].ID
		require.True(t, m.RemoveStakeholder(removed))
		require.True(t, m.Stakeholders[0].RemoveInteraction(m.Stakeholders[0].Interactions[0].ID))
		require.NoError(t, s.SaveMap(ctx, m))

		got, err := s.GetMap(ctx, owner, m.ID)
		require.NoError(t, err)
		require.Len(t, got.Stakeholders, 2)
		require.Nil(t, got.Stakeholder(removed))
		require.Empty(t, got.Stakeholders[0].Interactions)
		require.Len(t, got.Stakeholders[1].Interactions, 1)
	})

	t.Run("owner scoping", func(t *testing.T) {
		s := newStore(t)
		m := buildMap(t, owner, 1, 0)
		require.NoError(t, s.SaveMap(ctx, m))

		_, err := s.GetMap(ctx, other, m.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, s.DeleteMap(ctx, other, m.ID), ErrNotFound)

		maps, err := s.ListMaps(ctx, other)
		require.NoError(t, err)
		require.Empty(t, maps)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		older := buildMap(t, owner, 0, 0)
		older.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := buildMap(t, owner, 0, 0)
		newer.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.SaveMap(ctx, older))
		require.NoError(t, s.SaveMap(ctx, newer))

		maps, err := s.ListMaps(ctx, owner)
		require.NoError(t, err)
		require.Len(t, maps, 2)
		require.Equal(t, newer.ID, maps[0].ID)
	})

	t.Run("delete map and owner data", func(t *testing.T) {
		s := newStore(t)
		a := buildMap(t, owner, 2, 2)
		b := buildMap(t, owner, 1, 1)
		require.NoError(t, s.SaveMap(ctx, a))
		require.NoError(t, s.SaveMap(ctx, b))

		require.NoError(t, s.DeleteMap(ctx, owner, a.ID))
		_, err := s.GetMap(ctx, owner, a.ID)
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.DeleteOwnerData(ctx, owner))
		maps, err := s.ListMaps(ctx, owner)
		require.NoError(t, err)
		require.Empty(t, maps)
	})
}
