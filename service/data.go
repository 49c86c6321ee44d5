package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/store"
)

var (
	ErrInvalidStrategy    = errors.New("invalid merge strategy")
	ErrUnsupportedVersion = errors.New("unsupported export version")
)

// MergeStrategy decides which side wins when an imported entity already exists.
type MergeStrategy string

const (
	KeepExisting MergeStrategy = "keep-existing"
	Overwrite    MergeStrategy = "overwrite"
	Newest       MergeStrategy = "newest"
)

// ParseMergeStrategy defaults an empty value to Newest.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(s) {
	case "":
		return Newest, nil
	case KeepExisting, Overwrite, Newest:
		return MergeStrategy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// takeIncoming reports whether the incoming copy replaces the existing one.
// Under Newest a tie keeps what is already stored.
func (st MergeStrategy) takeIncoming(existing, incoming time.Time) bool {
	switch st {
	case Overwrite:
		return true
	case KeepExisting:
		return false
	default:
		return incoming.After(existing)
	}
}

type LevelCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func (c *LevelCounts) add(o LevelCounts) {
	c.Added += o.Added
	c.Updated += o.Updated
	c.Skipped += o.Skipped
}

// ImportReport summarizes a merge. A map listed in Errors was left untouched.
type ImportReport struct {
	Strategy     MergeStrategy `json:"strategy"`
	Maps         LevelCounts   `json:"maps"`
	Stakeholders LevelCounts   `json:"stakeholders"`
	Interactions LevelCounts   `json:"interactions"`
	Errors       []string      `json:"errors"`
}

func newImportReport(strategy MergeStrategy) *ImportReport {
	return &ImportReport{Strategy: strategy, Errors: []string{}}
}

func (r *ImportReport) merge(o *ImportReport) {
	r.Maps.add(o.Maps)
	r.Stakeholders.add(o.Stakeholders)
	r.Interactions.add(o.Interactions)
}

// DataService moves a principal's data in and out as a whole.
type DataService struct {
	maps *MapService
}

func NewDataService(maps *MapService) *DataService {
	return &DataService{maps: maps}
}

func (s *DataService) Export(ctx context.Context, p auth.Principal) (*models.Export, error) {
	st, err := s.maps.storeFor(p)
	if err != nil {
		return nil, err
	}
	maps, err := st.ListMaps(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return models.NewExport(p.ID, maps), nil
}

// Import merges doc into the principal's data. Failures of single maps are
// collected in the report; the returned error is reserved for a request that
// cannot be processed at all.
func (s *DataService) Import(ctx context.Context, p auth.Principal, doc *models.Export, strategy MergeStrategy) (*ImportReport, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty import document", models.ErrInvalid)
	}
	if doc.Version > models.ExportVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	st, err := s.maps.storeFor(p)
	if err != nil {
		return nil, err
	}
	report := s.importMaps(ctx, st, p.ID, doc.Maps, strategy)
	s.maps.record(ctx, p, models.EventDataImported, "")
	return report, nil
}

func (s *DataService) importMaps(ctx context.Context, st store.Store, ownerID string, maps []models.StakeholderMap, strategy MergeStrategy) *ImportReport {
	report := newImportReport(strategy)
	for i := range maps {
		incoming := maps[i].Copy()
		incoming.OwnerID = ownerID
		incoming.Normalize()
		if err := incoming.Validate(s.maps.max); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("map %s: %v", incoming.ID, err))
			continue
		}

		counts, err := s.importMap(ctx, st, incoming, strategy)
		if err != nil {
			s.maps.log.Warn().Err(err).Str("map", incoming.ID).Msg("import of map failed")
			report.Errors = append(report.Errors, fmt.Sprintf("map %s: %v", incoming.ID, err))
			continue
		}
		report.merge(counts)
	}
	return report
}

func (s *DataService) importMap(ctx context.Context, st store.Store, incoming *models.StakeholderMap, strategy MergeStrategy) (*ImportReport, error) {
	counts := newImportReport(strategy)
	unlock := s.maps.lock(incoming.ID)
	defer unlock()

	existing, err := st.GetMap(ctx, incoming.OwnerID, incoming.ID)
	if errors.Is(err, store.ErrNotFound) {
		counts.Maps.Added++
		for _, sh := range incoming.Stakeholders {
			counts.Stakeholders.Added++
			counts.Interactions.Added += len(sh.Interactions)
		}
		err := st.SaveMap(ctx, incoming)
		if errors.Is(err, store.ErrIDTaken) {
			s.maps.log.Info().Str("map", incoming.ID).Msg("imported ids belong to another owner, assigning fresh ids")
			incoming.Rekey()
			err = st.SaveMap(ctx, incoming)
		}
		if err != nil {
			return nil, err
		}
		return counts, nil
	}
	if err != nil {
		return nil, err
	}

	if !mergeMap(existing, incoming, strategy, counts) {
		return counts, nil
	}
	if err := existing.Validate(s.maps.max); err != nil {
		return nil, err
	}
	if err := st.SaveMap(ctx, existing); err != nil {
		return nil, err
	}
	return counts, nil
}

// mergeMap folds incoming into existing level by level and reports whether
// anything changed.
func mergeMap(existing, incoming *models.StakeholderMap, strategy MergeStrategy, counts *ImportReport) bool {
	takeMap := strategy.takeIncoming(existing.UpdatedAt, incoming.UpdatedAt)
	if takeMap {
		existing.Name = incoming.Name
		existing.Description = incoming.Description
		existing.Project = incoming.Project
		existing.ViewSettings = incoming.ViewSettings
		existing.Archived = incoming.Archived
		existing.UpdatedAt = incoming.UpdatedAt
		counts.Maps.Updated++
	} else {
		counts.Maps.Skipped++
	}

	childrenChanged := false
	for _, in := range incoming.Stakeholders {
		in.MapID = existing.ID
		cur := existing.Stakeholder(in.ID)
		if cur == nil {
			existing.Stakeholders = append(existing.Stakeholders, in)
			counts.Stakeholders.Added++
			counts.Interactions.Added += len(in.Interactions)
			childrenChanged = true
			continue
		}
		if mergeStakeholder(cur, in, strategy, counts) {
			childrenChanged = true
		}
	}
	if childrenChanged && !takeMap {
		existing.Touch()
	}
	return takeMap || childrenChanged
}

func mergeStakeholder(existing *models.Stakeholder, incoming models.Stakeholder, strategy MergeStrategy, counts *ImportReport) bool {
	changed := false
	if strategy.takeIncoming(existing.UpdatedAt, incoming.UpdatedAt) {
		interactions := existing.Interactions
		createdAt := existing.CreatedAt
		*existing = incoming
		existing.Interactions = interactions
		existing.CreatedAt = createdAt
		counts.Stakeholders.Updated++
		changed = true
	} else {
		counts.Stakeholders.Skipped++
	}

	for _, in := range incoming.Interactions {
		in.StakeholderID = existing.ID
		idx := -1
		for j := range existing.Interactions {
			if existing.Interactions[j].ID == in.ID {
				idx = j
				break
			}
		}
		switch {
		case idx < 0:
			existing.Interactions = append(existing.Interactions, in)
			counts.Interactions.Added++
			changed = true
		case strategy.takeIncoming(existing.Interactions[idx].UpdatedAt, in.UpdatedAt):
			existing.Interactions[idx] = in
			counts.Interactions.Updated++
			changed = true
		default:
			counts.Interactions.Skipped++
		}
	}
	sort.SliceStable(existing.Interactions, func(a, b int) bool {
		return existing.Interactions[a].Date.Before(existing.Interactions[b].Date)
	})
	return changed
}

// Clear deletes every map the principal owns, with their stakeholders and interactions.
func (s *DataService) Clear(ctx context.Context, p auth.Principal) error {
	st, err := s.maps.storeFor(p)
	if err != nil {
		return err
	}
	maps, err := st.ListMaps(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	// hold every map lock so no in-flight edit saves a map back after the delete
	ids := make([]string, len(maps))
	for i := range maps {
		ids[i] = maps[i].ID
	}
	sort.Strings(ids)
	for _, id := range ids {
		unlock := s.maps.lock(id)
		defer unlock()
	}
	if err := st.DeleteOwnerData(ctx, p.ID); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	s.maps.record(ctx, p, models.EventDataCleared, "")
	return nil
}

// ClaimGuest moves the data of guestID into the account of p using the Newest
// strategy. The guest file is removed only when every map was taken over.
func (s *DataService) ClaimGuest(ctx context.Context, p auth.Principal, guestID string) (*ImportReport, error) {
	if p.Guest {
		return nil, ErrForbidden
	}
	if s.maps.guests == nil {
		return nil, ErrGuestDisabled
	}
	if !store.ValidGuestID(guestID) {
		return nil, fmt.Errorf("%w: guest id", models.ErrInvalid)
	}
	maps, err := s.maps.guests.ListMaps(ctx, guestID)
	if err != nil {
		return nil, err
	}
	report := s.importMaps(ctx, s.maps.accounts, p.ID, maps, Newest)
	if len(report.Errors) > 0 {
		return report, nil
	}
	if err := s.maps.guests.DeleteOwnerData(ctx, guestID); err != nil {
		return nil, fmt.Errorf("clear guest %s: %w", guestID, err)
	}
	s.maps.record(ctx, p, models.EventGuestClaimed, "")
	return report, nil
}
