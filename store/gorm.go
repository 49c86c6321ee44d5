package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/stakemap/models"
)

// GormStore implements Store, UserStore and EventStore on any gorm dialect.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.StakeholderMap{},
		&models.Stakeholder{},
		&models.Interaction{},
		&models.Event{},
	)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Stakeholders", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("Stakeholders.Interactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc")
		})
}

func (s *GormStore) ListMaps(ctx context.Context, ownerID string) ([]models.StakeholderMap, error) {
	var maps []models.StakeholderMap
	err := withChildren(s.db.WithContext(ctx)).
		Where("owner_id = ?", ownerID).
		Order("updated_at desc").
		Find(&maps).Error
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	if maps == nil {
		maps = []models.StakeholderMap{}
	}
	return maps, nil
}

func (s *GormStore) GetMap(ctx context.Context, ownerID, mapID string) (*models.StakeholderMap, error) {
	var m models.StakeholderMap
	err := withChildren(s.db.WithContext(ctx)).
		Where("id = ? AND owner_id = ?", mapID, ownerID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get map %s: %w", mapID, err)
	}
	m.Normalize()
	return &m, nil
}

// SaveMap replaces the stored children of m wholesale. Maps hold tens of
// stakeholders, so rewriting them is cheaper than diffing.
func (s *GormStore) SaveMap(ctx context.Context, m *models.StakeholderMap) error {
	m.Normalize()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.StakeholderMap
		err := tx.Select("id", "owner_id").Where("id = ?", m.ID).First(&existing).Error
		switch {
		case err == nil && existing.OwnerID != m.OwnerID:
			return fmt.Errorf("save map %s: %w", m.ID, ErrIDTaken)
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("save map %s: %w", m.ID, err)
		}

		if err := deleteChildren(tx, m.ID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(m).Error; err != nil {
			return fmt.Errorf("save map %s: %w", m.ID, translate(err))
		}
		if len(m.Stakeholders) == 0 {
			return nil
		}
		if err := tx.Omit(clause.Associations).Create(&m.Stakeholders).Error; err != nil {
			return fmt.Errorf("save stakeholders of %s: %w", m.ID, translate(err))
		}
		var interactions []models.Interaction
		for _, st := range m.Stakeholders {
			interactions = append(interactions, st.Interactions...)
		}
		if len(interactions) == 0 {
			return nil
		}
		if err := tx.Create(&interactions).Error; err != nil {
			return fmt.Errorf("save interactions of %s: %w", m.ID, translate(err))
		}
		return nil
	})
}

// translate maps a unique key violation onto ErrIDTaken. It relies on the
// dialect translating driver errors, see config.Connect.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrIDTaken
	}
	return err
}

func deleteChildren(tx *gorm.DB, mapID string) error {
	stakeholderIDs := tx.Model(&models.Stakeholder{}).Select("id").Where("map_id = ?", mapID)
	if err := tx.Where("stakeholder_id IN (?)", stakeholderIDs).Delete(&models.Interaction{}).Error; err != nil {
		return fmt.Errorf("delete interactions of %s: %w", mapID, err)
	}
	if err := tx.Where("map_id = ?", mapID).Delete(&models.Stakeholder{}).Error; err != nil {
		return fmt.Errorf("delete stakeholders of %s: %w", mapID, err)
	}
	return nil
}

func (s *GormStore) DeleteMap(ctx context.Context, ownerID, mapID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.StakeholderMap
		if err := tx.Select("id").Where("id = ? AND owner_id = ?", mapID, ownerID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("delete map %s: %w", mapID, err)
		}
		if err := deleteChildren(tx, mapID); err != nil {
			return err
		}
		if err := tx.Where("id = ?", mapID).Delete(&models.StakeholderMap{}).Error; err != nil {
			return fmt.Errorf("delete map %s: %w", mapID, err)
		}
		return nil
	})
}

func (s *GormStore) DeleteOwnerData(ctx context.Context, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mapIDs := tx.Model(&models.StakeholderMap{}).Select("id").Where("owner_id = ?", ownerID)
		stakeholderIDs := tx.Model(&models.Stakeholder{}).Select("id").Where("map_id IN (?)", mapIDs)
		if err := tx.Where("stakeholder_id IN (?)", stakeholderIDs).Delete(&models.Interaction{}).Error; err != nil {
			return fmt.Errorf("delete interactions for %s: %w", ownerID, err)
		}
		if err := tx.Where("map_id IN (?)", mapIDs).Delete(&models.Stakeholder{}).Error; err != nil {
			return fmt.Errorf("delete stakeholders for %s: %w", ownerID, err)
		}
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.StakeholderMap{}).Error; err != nil {
			return fmt.Errorf("delete maps for %s: %w", ownerID, err)
		}
		return nil
	})
}

// SyncUser creates u or refreshes its nickname and role.
func (s *GormStore) SyncUser(ctx context.Context, u *models.User) error {
	db := s.db.WithContext(ctx)
	var existing models.User
	err := db.Where("id = ?", u.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.Create(u).Error; err != nil {
			return fmt.Errorf("create user %s: %w", u.ID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user %s: %w", u.ID, err)
	}

	changed := false
	if u.Nickname != "" && existing.Nickname != u.Nickname {
		existing.Nickname = u.Nickname
		changed = true
	}
	if u.Role != "" && existing.Role != u.Role {
		existing.Role = u.Role
		changed = true
	}
	if changed {
		if err := db.Save(&existing).Error; err != nil {
			return fmt.Errorf("update user %s: %w", u.ID, err)
		}
	}
	*u = existing
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *GormStore) RecordEvent(ctx context.Context, e *models.Event) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("record event %s: %w", e.Name, err)
	}
	return nil
}

func (s *GormStore) CountEvents(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Name  string
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("name, count(*) as count").
		Group("name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Name] = r.Count
	}
	return counts, nil
}
