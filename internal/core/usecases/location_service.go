package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/pkg/metrics"
	"github.com/samirrijal/placemark/internal/pkg/telemetry"
	"github.com/samirrijal/placemark/internal/pkg/textutil"
)

const (
	locationListCacheKey = "locations:list"
	locationListTTL      = 300
	unnamedLocation      = "위치 정보"
)

// SaveResult is the outcome of a save or update. RejectedPhotos lists the
// photos that were left out; the rest of the submission still went through.
type SaveResult struct {
	Location       domain.SavedLocation   `json:"location"`
	RejectedPhotos []domain.RejectedPhoto `json:"rejectedPhotos,omitempty"`
}

// LocationService owns the saved location collection. Every write rebuilds
// the whole collection and stores it in one go.
type LocationService struct {
	// mu is held for writing by write and for reading while List fills the
	// cache, so a list read before a write can never be cached after it.
	mu        sync.RWMutex
	store     ports.LocationStore
	cache     ports.CacheService
	publisher ports.EventPublisher

	now   func() time.Time
	newID func() (string, error)
}

// NewLocationService creates a new LocationService. cache and publisher may
// be nil.
func NewLocationService(store ports.LocationStore, cache ports.CacheService, publisher ports.EventPublisher) *LocationService {
	return &LocationService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
		newID:     newLocationID,
	}
}

// List returns the whole collection. A missing or malformed collection reads
// as empty.
func (s *LocationService) List(ctx context.Context) ([]domain.SavedLocation, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, locationListCacheKey); err == nil {
			var locs []domain.SavedLocation
			if err := json.Unmarshal(data, &locs); err == nil {
				metrics.CacheHits.WithLabelValues("locations").Inc()
				return locs, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("locations").Inc()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	locs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(locs); err == nil {
			_ = s.cache.Set(ctx, locationListCacheKey, data, locationListTTL)
		}
	}
	return locs, nil
}

// Get returns one saved location.
func (s *LocationService) Get(ctx context.Context, id string) (*domain.SavedLocation, error) {
	locs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(locs, func(l domain.SavedLocation) bool { return l.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("location %s: %w", id, domain.ErrNotFound)
	}
	return &locs[i], nil
}

// Grouped returns the collection partitioned into display buckets.
func (s *LocationService) Grouped(ctx context.Context) ([]domain.CategoryGroup, error) {
	locs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupByCategory(locs), nil
}

// Save validates c, turns it into a SavedLocation with a fresh id and
// timestamp and appends it to the collection.
func (s *LocationService) Save(ctx context.Context, c domain.Candidate) (*SaveResult, error) {
	category, err := domain.ComposeCategory(c.Category, c.CustomCategory)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRating(c.Rating); err != nil {
		return nil, err
	}
	review := strings.TrimSpace(c.Review)
	if err := domain.ValidateReview(review); err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	photos, rejected := domain.FilterPhotos(c.Photos)
	name := textutil.StripTags(c.Name)
	if name == "" {
		name = unnamedLocation
	}

	loc := domain.SavedLocation{
		ID:          id,
		Name:        name,
		Address:     textutil.StripTags(c.PreferredAddress()),
		Coordinates: c.Coordinates,
		Category:    category,
		Rating:      c.Rating,
		Review:      review,
		Photos:      photos,
		Timestamp:   s.now().UTC(),
	}

	err = s.write(ctx, domain.LocationSaved, func(locs []domain.SavedLocation) ([]domain.SavedLocation, error) {
		if slices.ContainsFunc(locs, func(l domain.SavedLocation) bool { return l.ID == loc.ID }) {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrValidation, loc.ID)
		}
		return append(locs, loc), nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.NewLocationEvent(domain.LocationSaved, loc.ID, &loc, loc.Timestamp))
	metrics.RejectedPhotos.Add(float64(len(rejected)))
	return &SaveResult{Location: loc, RejectedPhotos: rejected}, nil
}

// Update replaces the entry with loc.ID by value and stamps UpdatedAt. The
// id and creation timestamp of the stored entry are kept.
func (s *LocationService) Update(ctx context.Context, loc domain.SavedLocation) (*SaveResult, error) {
	loc.Category = strings.TrimSpace(loc.Category)
	loc.Review = strings.TrimSpace(loc.Review)
	loc.Name = textutil.StripTags(loc.Name)
	if loc.Name == "" {
		loc.Name = unnamedLocation
	}

	photos, rejected := domain.FilterPhotos(loc.Photos)
	loc.Photos = photos

	now := s.now().UTC()
	loc.UpdatedAt = &now

	var updated domain.SavedLocation
	err := s.write(ctx, domain.LocationUpdated, func(locs []domain.SavedLocation) ([]domain.SavedLocation, error) {
		i := slices.IndexFunc(locs, func(l domain.SavedLocation) bool { return l.ID == loc.ID })
		if i < 0 {
			return nil, fmt.Errorf("location %s: %w", loc.ID, domain.ErrNotFound)
		}
		loc.Timestamp = locs[i].Timestamp
		if err := loc.Validate(); err != nil {
			return nil, err
		}
		locs[i] = loc
		updated = loc
		return locs, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, domain.NewLocationEvent(domain.LocationUpdated, updated.ID, &updated, now))
	metrics.RejectedPhotos.Add(float64(len(rejected)))
	return &SaveResult{Location: updated, RejectedPhotos: rejected}, nil
}

// Delete removes the entry with id. confirmed must be set; deletes are
// two-step in the client.
func (s *LocationService) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete %s: %w", id, domain.ErrConfirmationRequired)
	}

	err := s.write(ctx, domain.LocationDeleted, func(locs []domain.SavedLocation) ([]domain.SavedLocation, error) {
		i := slices.IndexFunc(locs, func(l domain.SavedLocation) bool { return l.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("location %s: %w", id, domain.ErrNotFound)
		}
		return slices.Delete(locs, i, i+1), nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, domain.NewLocationEvent(domain.LocationDeleted, id, nil, s.now().UTC()))
	return nil
}

// ImportStats counts what Import did with each incoming entry.
type ImportStats struct {
	Added   int
	Skipped int
	Invalid int
}

// Import appends the valid entries of incoming whose id is not stored yet.
// Missing ids and timestamps are filled in and photos are filtered as on
// save. A malformed stored collection is reported rather than overwritten.
func (s *LocationService) Import(ctx context.Context, incoming []domain.SavedLocation) (ImportStats, error) {
	var stats ImportStats
	if _, err := s.store.Load(ctx); errors.Is(err, ports.ErrCorrupt) {
		return stats, fmt.Errorf("%w: refusing to import over it", err)
	}

	now := s.now().UTC()
	err := s.write(ctx, domain.LocationImported, func(locs []domain.SavedLocation) ([]domain.SavedLocation, error) {
		stats = ImportStats{}
		seen := make(map[string]bool, len(locs)+len(incoming))
		for _, l := range locs {
			seen[l.ID] = true
		}

		for i, l := range incoming {
			if l.ID == "" {
				id, err := s.newID()
				if err != nil {
					return nil, fmt.Errorf("generate id: %w", err)
				}
				l.ID = id
			}
			if l.Timestamp.IsZero() {
				l.Timestamp = now
			}
			if seen[l.ID] {
				stats.Skipped++
				continue
			}
			kept, rejected := domain.FilterPhotos(l.Photos)
			if len(rejected) > 0 {
				slog.WarnContext(ctx, "dropping photos", "index", i, "id", l.ID, "count", len(rejected))
			}
			l.Photos = kept
			if err := l.Validate(); err != nil {
				slog.WarnContext(ctx, "skipping invalid entry", "index", i, "id", l.ID, "error", err)
				stats.Invalid++
				continue
			}
			seen[l.ID] = true
			locs = append(locs, l)
			stats.Added++
		}
		if stats.Added == 0 {
			return nil, errNothingToImport
		}
		return locs, nil
	})
	switch {
	case errors.Is(err, errNothingToImport):
		return stats, nil
	case err != nil:
		return stats, err
	}

	s.notify(ctx, domain.NewLocationEvent(domain.LocationImported, "", nil, now))
	return stats, nil
}

var errNothingToImport = errors.New("nothing to import")

// Invalidate drops the cached list so the next read goes to storage.
func (s *LocationService) Invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, locationListCacheKey)
	}
}

// write loads the collection, lets mutate build the next one and stores it.
// Nothing is stored when mutate fails.
func (s *LocationService) write(ctx context.Context, op domain.LocationOp, mutate func([]domain.SavedLocation) ([]domain.SavedLocation, error)) error {
	ctx, span := telemetry.Tracer("placemark/locations").Start(ctx, telemetry.SpanLocationWrite)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrLocationOp, string(op)))

	s.mu.Lock()
	defer s.mu.Unlock()

	locs, err := s.load(ctx)
	if err != nil {
		metrics.LocationWrites.WithLabelValues(string(op), "error").Inc()
		return err
	}

	next, err := mutate(slices.Clone(locs))
	if err != nil {
		metrics.LocationWrites.WithLabelValues(string(op), "rejected").Inc()
		return err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrLocationCount, len(next)))
	if err := s.store.Store(ctx, next); err != nil {
		metrics.LocationWrites.WithLabelValues(string(op), "error").Inc()
		span.RecordError(err)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	metrics.LocationWrites.WithLabelValues(string(op), "ok").Inc()

	s.Invalidate(ctx)
	return nil
}

func (s *LocationService) load(ctx context.Context) ([]domain.SavedLocation, error) {
	locs, err := s.store.Load(ctx)
	switch {
	case err == nil:
		if locs == nil {
			locs = []domain.SavedLocation{}
		}
		return locs, nil
	case errors.Is(err, ports.ErrKeyNotFound):
		return []domain.SavedLocation{}, nil
	case errors.Is(err, ports.ErrCorrupt):
		slog.WarnContext(ctx, "saved locations are malformed, reading as empty", "error", err)
		return []domain.SavedLocation{}, nil
	default:
		return nil, fmt.Errorf("%w: load locations: %v", domain.ErrPersistence, err)
	}
}

func (s *LocationService) notify(ctx context.Context, event domain.LocationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLocationEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish location event failed", "op", event.Op, "id", event.ID, "error", err)
	}
}

// newLocationID returns a time-ordered UUIDv7.
func newLocationID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
