package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitcycle/kitcycle-api/internal/dto"
	"github.com/kitcycle/kitcycle-api/internal/models"
	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type schoolStore interface {
	Create(ctx context.Context, school *models.School) error
	GetByID(ctx context.Context, id string) (*models.School, error)
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, error)
	ListByLocation(ctx context.Context, countyID string, localityID *string) ([]models.School, error)
	Counties(ctx context.Context) ([]models.County, error)
	Localities(ctx context.Context) ([]models.Locality, error)
	CountyExists(ctx context.Context, id string) (bool, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SchoolCacheConfig tunes directory read caching.
type SchoolCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SchoolService serves the public school directory, fronted by Redis when
// caching is enabled. It also backs the submission workflow's duplicate
// checks and school creation, invalidating the cache on writes.
type SchoolService struct {
	repo   schoolStore
	cache  cacheStore
	cfg    SchoolCacheConfig
	logger *zap.Logger
}

// NewSchoolService constructs the service. cache may be nil when caching is
// disabled.
func NewSchoolService(repo schoolStore, cache cacheStore, cfg SchoolCacheConfig, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// List returns active schools matching the directory filters. Unfiltered
// search-free pages are cached.
func (s *SchoolService) List(ctx context.Context, query dto.SchoolQuery) ([]models.School, error) {
	filter := models.SchoolFilter{
		CountyID:   query.CountyID,
		LocalityID: query.LocalityID,
		Level:      query.Level,
		Search:     query.Search,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}

	cacheable := s.cacheEnabled() && query.Search == ""
	key := fmt.Sprintf("directory:schools:%s:%s:%s:%d:%d",
		query.CountyID, query.LocalityID, query.Level, query.Limit, query.Offset)
	if cacheable {
		var cached []models.School
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache read failed", zap.Error(err))
		}
	}

	schools, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, schools, s.cfg.TTL); err != nil {
			s.logger.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return schools, nil
}

// Get returns a single school by id.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// Locations returns every county with its localities, cached aggressively
// since the data is effectively static.
func (s *SchoolService) Locations(ctx context.Context) ([]models.CountyWithLocalities, error) {
	const key = "directory:locations"
	if s.cacheEnabled() {
		var cached []models.CountyWithLocalities
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("locations cache read failed", zap.Error(err))
		}
	}

	counties, err := s.repo.Counties(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list counties")
	}
	localities, err := s.repo.Localities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list localities")
	}

	byCounty := make(map[string][]models.Locality, len(counties))
	for _, loc := range localities {
		byCounty[loc.CountyID] = append(byCounty[loc.CountyID], loc)
	}
	result := make([]models.CountyWithLocalities, 0, len(counties))
	for _, county := range counties {
		result = append(result, models.CountyWithLocalities{
			County:     county,
			Localities: byCounty[county.ID],
		})
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, result, s.cfg.TTL); err != nil {
			s.logger.Warn("locations cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// Create adds a school to the directory and drops stale cached pages. Used
// by the submission workflow when an admin approves a new school.
func (s *SchoolService) Create(ctx context.Context, school *models.School) error {
	if err := s.repo.Create(ctx, school); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// GetByID passes through to the store; the submission workflow resolves
// duplicate targets with it.
func (s *SchoolService) GetByID(ctx context.Context, id string) (*models.School, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByLocation passes through to the store for duplicate detection.
func (s *SchoolService) ListByLocation(ctx context.Context, countyID string, localityID *string) ([]models.School, error) {
	return s.repo.ListByLocation(ctx, countyID, localityID)
}

// CountyExists passes through to the store.
func (s *SchoolService) CountyExists(ctx context.Context, id string) (bool, error) {
	return s.repo.CountyExists(ctx, id)
}

func (s *SchoolService) cacheEnabled() bool {
	return s.cfg.Enabled && s.cache != nil
}

func (s *SchoolService) invalidate(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "directory:schools:*"); err != nil {
		s.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
}
