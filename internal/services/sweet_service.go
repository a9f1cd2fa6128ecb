package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"sweetshop/internal/cache"
	"sweetshop/internal/events"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"

	"github.com/rs/zerolog/log"
)

// ListCacheKey is where the full sweet listing is cached.
const ListCacheKey = "sweets:all"

// SweetService handles business logic related to the inventory.
type SweetService struct {
	repo   repositories.SweetRepository
	cache  cache.Cache
	events events.Publisher
}

// NewSweetService creates a new SweetService. A nil cache or publisher disables that concern.
func NewSweetService(repo repositories.SweetRepository, c cache.Cache, p events.Publisher) *SweetService {
	if c == nil {
		c = cache.Nop{}
	}
	if p == nil {
		p = events.Nop{}
	}
	return &SweetService{
		repo:   repo,
		cache:  c,
		events: p,
	}
}

// Create validates and stores a new sweet.
func (s *SweetService) Create(ctx context.Context, sweet *models.Sweet) (*models.Sweet, error) {
	if err := validateName("name", sweet.Name); err != nil {
		return nil, err
	}
	if err := validateName("category", sweet.Category); err != nil {
		return nil, err
	}
	if err := validatePrice(sweet.Price); err != nil {
		return nil, err
	}
	if err := validateStock(sweet.Quantity); err != nil {
		return nil, err
	}

	sweet.ID = 0
	if err := s.repo.Create(ctx, sweet); err != nil {
		return nil, err
	}
	s.changed(ctx, events.SweetCreated, sweet.ID, sweet.Quantity)
	return sweet, nil
}

// List returns every sweet in insertion order.
func (s *SweetService) List(ctx context.Context) ([]models.Sweet, error) {
	var cached []models.Sweet
	found, err := s.cache.Get(ctx, ListCacheKey, &cached)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("sweet list cache read failed")
	} else if found {
		return cached, nil
	}

	sweets, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, ListCacheKey, sweets); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("sweet list cache write failed")
	}
	return sweets, nil
}

// Search returns sweets matching all supplied filters. No filters means List.
func (s *SweetService) Search(ctx context.Context, filter models.SweetFilter) ([]models.Sweet, error) {
	if filter.MinPrice != nil && !(*filter.MinPrice >= 0) {
		return nil, invalid("min_price", "must be greater than or equal to 0")
	}
	if filter.MaxPrice != nil && !(*filter.MaxPrice >= 0) {
		return nil, invalid("max_price", "must be greater than or equal to 0")
	}
	if filter.IsZero() {
		return s.List(ctx)
	}
	return s.repo.Search(ctx, filter)
}

// Get returns one sweet.
func (s *SweetService) Get(ctx context.Context, id uint) (*models.Sweet, error) {
	sweet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return sweet, nil
}

// Update writes the supplied fields of patch, validating each as on create.
func (s *SweetService) Update(ctx context.Context, id uint, patch models.SweetPatch) (*models.Sweet, error) {
	if patch.Name != nil {
		if err := validateName("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Category != nil {
		if err := validateName("category", *patch.Category); err != nil {
			return nil, err
		}
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Quantity != nil {
		if err := validateStock(*patch.Quantity); err != nil {
			return nil, err
		}
	}

	sweet, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err)
	}
	if !patch.Empty() {
		s.changed(ctx, events.SweetUpdated, sweet.ID, sweet.Quantity)
	}
	return sweet, nil
}

// Purchase removes quantity from stock. It never lets stock go negative.
func (s *SweetService) Purchase(ctx context.Context, id uint, quantity int) (*models.Sweet, error) {
	if quantity <= 0 {
		return nil, invalid("quantity", "must be greater than 0")
	}
	sweet, err := s.repo.Decrement(ctx, id, quantity)
	if err != nil {
		return nil, translate(err)
	}
	s.changed(ctx, events.SweetPurchased, sweet.ID, quantity)
	return sweet, nil
}

// Restock adds quantity to stock. Admin only.
func (s *SweetService) Restock(ctx context.Context, id uint, quantity int) (*models.Sweet, error) {
	if err := authorize(ctx, RoleAdmin); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, invalid("quantity", "must be greater than 0")
	}
	sweet, err := s.repo.Increment(ctx, id, quantity)
	if err != nil {
		return nil, translate(err)
	}
	s.changed(ctx, events.SweetRestocked, sweet.ID, quantity)
	return sweet, nil
}

// Delete removes a sweet. Admin only.
func (s *SweetService) Delete(ctx context.Context, id uint) error {
	if err := authorize(ctx, RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err)
	}
	s.changed(ctx, events.SweetDeleted, id, 0)
	return nil
}

// changed runs after a successful mutation. Failures here are logged, never returned.
func (s *SweetService) changed(ctx context.Context, t events.Type, sweetID uint, quantity int) {
	logger := log.Ctx(ctx)
	if err := s.cache.Delete(ctx, ListCacheKey); err != nil {
		logger.Warn().Err(err).Msg("sweet list cache invalidation failed")
	}
	if err := s.events.Publish(ctx, events.New(t, sweetID, quantity, actorID(ctx))); err != nil {
		logger.Warn().Err(err).Str("event", string(t)).Uint("sweet_id", sweetID).Msg("inventory event not published")
	}
	logger.Info().Str("event", string(t)).Uint("sweet_id", sweetID).Int("quantity", quantity).Msg("inventory changed")
}

func translate(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrSweetNotFound
	case errors.Is(err, repositories.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, repositories.ErrStockOverflow):
		return invalid("quantity", "would exceed the maximum stock")
	default:
		return fmt.Errorf("inventory storage: %w", err)
	}
}

func validateName(field, v string) error {
	if v == "" {
		return invalid(field, "must not be empty")
	}
	return nil
}

func validatePrice(p float64) error {
	if !(p > 0) || math.IsInf(p, 0) {
		return invalid("price", "must be greater than 0")
	}
	return nil
}

func validateStock(q int) error {
	if q < 0 {
		return invalid("quantity", "must be greater than or equal to 0")
	}
	return nil
}
