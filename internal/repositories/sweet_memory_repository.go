package repositories

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"sweetshop/internal/models"
)

// MemorySweetRepository is an in-memory implementation of SweetRepository.
type MemorySweetRepository struct {
	sweets map[uint]models.Sweet
	nextID uint
	mu     sync.RWMutex
}

// NewMemorySweetRepository creates a new instance of MemorySweetRepository.
func NewMemorySweetRepository() *MemorySweetRepository {
	return &MemorySweetRepository{
		sweets: make(map[uint]models.Sweet),
		nextID: 1,
	}
}

// Create adds a new sweet and assigns it the next ID.
func (r *MemorySweetRepository) Create(_ context.Context, sweet *models.Sweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet.ID = r.nextID
	r.nextID++
	r.sweets[sweet.ID] = *sweet
	return nil
}

// GetAll returns all sweets ordered by ID.
func (r *MemorySweetRepository) GetAll(_ context.Context) ([]models.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(models.Sweet) bool { return true }), nil
}

// GetByID returns a sweet by its ID.
func (r *MemorySweetRepository) GetByID(_ context.Context, id uint) (*models.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sweet, nil
}

// Search returns sweets matching every supplied filter.
func (r *MemorySweetRepository) Search(_ context.Context, filter models.SweetFilter) ([]models.Sweet, error) {
	name := strings.ToLower(filter.Name)
	category := strings.ToLower(filter.Category)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(s models.Sweet) bool {
		if !matchesText(s, name, category) {
			return false
		}
		if filter.MinPrice != nil && s.Price < *filter.MinPrice {
			return false
		}
		if filter.MaxPrice != nil && s.Price > *filter.MaxPrice {
			return false
		}
		return true
	}), nil
}

// Update applies the supplied fields of patch.
func (r *MemorySweetRepository) Update(_ context.Context, id uint, patch models.SweetPatch) (*models.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&sweet)
	r.sweets[id] = sweet
	return &sweet, nil
}

// Decrement removes quantity from stock if enough is available.
func (r *MemorySweetRepository) Decrement(_ context.Context, id uint, quantity int) (*models.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sweet.Quantity < quantity {
		return nil, ErrInsufficientStock
	}
	sweet.Quantity -= quantity
	r.sweets[id] = sweet
	return &sweet, nil
}

// Increment adds quantity to stock.
func (r *MemorySweetRepository) Increment(_ context.Context, id uint, quantity int) (*models.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sweet.Quantity > math.MaxInt-quantity {
		return nil, ErrStockOverflow
	}
	sweet.Quantity += quantity
	r.sweets[id] = sweet
	return &sweet, nil
}

// Delete removes a sweet by its ID.
func (r *MemorySweetRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sweets[id]; !ok {
		return ErrNotFound
	}
	delete(r.sweets, id)
	return nil
}

// collect must be called with r.mu held.
func (r *MemorySweetRepository) collect(keep func(models.Sweet) bool) []models.Sweet {
	list := make([]models.Sweet, 0, len(r.sweets))
	for _, s := range r.sweets {
		if keep(s) {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// matchesText reports whether s contains the already lowercased name and
// category terms. Empty terms match everything.
func matchesText(s models.Sweet, name, category string) bool {
	if name != "" && !strings.Contains(strings.ToLower(s.Name), name) {
		return false
	}
	if category != "" && !strings.Contains(strings.ToLower(s.Category), category) {
		return false
	}
	return true
}
