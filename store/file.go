package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/andrewpaige1/stakemap/models"
)

var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ErrInvalidGuestID is returned for owner ids that cannot name a guest file.
var ErrInvalidGuestID = errors.New("invalid guest id")

// ValidGuestID reports whether id can be used as a FileStore owner.
func ValidGuestID(id string) bool {
	return guestIDPattern.MatchString(id)
}

type guestDocument struct {
	OwnerID   string                  `json:"ownerId"`
	UpdatedAt time.Time               `json:"updatedAt"`
	Maps      []models.StakeholderMap `json:"maps"`
}

// FileStore keeps each guest's maps in <dir>/<guestID>.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create guest data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(ownerID string) (string, error) {
	if !ValidGuestID(ownerID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidGuestID, ownerID)
	}
	return filepath.Join(s.dir, ownerID+".json"), nil
}

// load must be called with mu held.
func (s *FileStore) load(ownerID string) (*guestDocument, error) {
	p, err := s.path(ownerID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return &guestDocument{OwnerID: ownerID, Maps: []models.StakeholderMap{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read guest data: %w", err)
	}
	var doc guestDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode guest data %s: %w", ownerID, err)
	}
	for i := range doc.Maps {
		doc.Maps[i].OwnerID = ownerID
		doc.Maps[i].Normalize()
	}
	return &doc, nil
}

// save must be called with mu held. The document is written to a temp file
// and renamed so a crash never leaves a torn file behind.
func (s *FileStore) save(doc *guestDocument) error {
	p, err := s.path(doc.OwnerID)
	if err != nil {
		return err
	}
	if len(doc.Maps) == 0 {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove guest data: %w", err)
		}
		return nil
	}
	doc.UpdatedAt = time.Now().UTC()
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode guest data: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".guest-*.tmp")
	if err != nil {
		return fmt.Errorf("write guest data: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write guest data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync guest data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close guest data: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace guest data: %w", err)
	}
	return nil
}

func (s *FileStore) ListMaps(ctx context.Context, ownerID string) ([]models.StakeholderMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ownerID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(doc.Maps, func(i, j int) bool {
		return doc.Maps[i].UpdatedAt.After(doc.Maps[j].UpdatedAt)
	})
	return doc.Maps, nil
}

func (s *FileStore) GetMap(ctx context.Context, ownerID, mapID string) (*models.StakeholderMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ownerID)
	if err != nil {
		return nil, err
	}
	for i := range doc.Maps {
		if doc.Maps[i].ID == mapID {
			return &doc.Maps[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) SaveMap(ctx context.Context, m *models.StakeholderMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(m.OwnerID)
	if err != nil {
		return err
	}
	m.Normalize()
	replaced := false
	for i := range doc.Maps {
		if doc.Maps[i].ID == m.ID {
			doc.Maps[i] = *m
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Maps = append(doc.Maps, *m)
	}
	return s.save(doc)
}

func (s *FileStore) DeleteMap(ctx context.Context, ownerID, mapID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ownerID)
	if err != nil {
		return err
	}
	for i := range doc.Maps {
		if doc.Maps[i].ID == mapID {
			doc.Maps = append(doc.Maps[:i], doc.Maps[i+1:]...)
			return s.save(doc)
		}
	}
	return ErrNotFound
}

func (s *FileStore) DeleteOwnerData(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(&guestDocument{OwnerID: ownerID})
}

func (s *FileStore) Close() error {
	return nil
}
