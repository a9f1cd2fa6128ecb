package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"sweetshop/internal/models"

	"gorm.io/gorm"
)

// GORMSweetRepository is a GORM implementation of SweetRepository.
type GORMSweetRepository struct {
	db *gorm.DB
}

// NewGORMSweetRepository creates a new instance of GORMSweetRepository.
func NewGORMSweetRepository(db *gorm.DB) *GORMSweetRepository {
	return &GORMSweetRepository{
		db: db,
	}
}

// Create inserts a new sweet and fills in its ID.
func (r *GORMSweetRepository) Create(ctx context.Context, sweet *models.Sweet) error {
	if err := r.db.WithContext(ctx).Create(sweet).Error; err != nil {
		return fmt.Errorf("failed to create sweet: %w", err)
	}
	return nil
}

// GetAll retrieves all sweets in insertion order.
func (r *GORMSweetRepository) GetAll(ctx context.Context) ([]models.Sweet, error) {
	sweets := []models.Sweet{}
	if err := r.db.WithContext(ctx).Order("id").Find(&sweets).Error; err != nil {
		return nil, fmt.Errorf("failed to get all sweets: %w", err)
	}
	return sweets, nil
}

// GetByID retrieves a single sweet.
func (r *GORMSweetRepository) GetByID(ctx context.Context, id uint) (*models.Sweet, error) {
	return findSweet(r.db.WithContext(ctx), id)
}

// Search returns sweets matching every supplied filter.
// SQLite's LOWER only folds ASCII, so there the text filters run in Go.
func (r *GORMSweetRepository) Search(ctx context.Context, filter models.SweetFilter) ([]models.Sweet, error) {
	foldInGo := r.db.Dialector.Name() == "sqlite"

	query := r.db.WithContext(ctx).Model(&models.Sweet{})
	if filter.Name != "" && !foldInGo {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(filter.Name))
	}
	if filter.Category != "" && !foldInGo {
		query = query.Where("LOWER(category) LIKE ? ESCAPE '!'", containsPattern(filter.Category))
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	sweets := []models.Sweet{}
	if err := query.Order("id").Find(&sweets).Error; err != nil {
		return nil, fmt.Errorf("failed to search sweets: %w", err)
	}
	if !foldInGo {
		return sweets, nil
	}

	name, category := strings.ToLower(filter.Name), strings.ToLower(filter.Category)
	matched := sweets[:0]
	for _, s := range sweets {
		if matchesText(s, name, category) {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

// Update writes only the columns present in patch.
func (r *GORMSweetRepository) Update(ctx context.Context, id uint, patch models.SweetPatch) (*models.Sweet, error) {
	var sweet *models.Sweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Existence check first: some drivers report zero affected rows for no-op updates.
		if _, err := findSweet(tx, id); err != nil {
			return err
		}
		if !patch.Empty() {
			if err := tx.Model(&models.Sweet{}).Where("id = ?", id).Updates(patch.Columns()).Error; err != nil {
				return fmt.Errorf("failed to update sweet %d: %w", id, err)
			}
		}
		var err error
		sweet, err = findSweet(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sweet, nil
}

// Decrement removes quantity from stock with a single conditional UPDATE.
func (r *GORMSweetRepository) Decrement(ctx context.Context, id uint, quantity int) (*models.Sweet, error) {
	var sweet *models.Sweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ? AND quantity >= ?", id, quantity).
			Update("quantity", gorm.Expr("quantity - ?", quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to decrement stock of sweet %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			if _, err := findSweet(tx, id); err != nil {
				return err
			}
			return ErrInsufficientStock
		}
		var err error
		sweet, err = findSweet(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sweet, nil
}

// Increment adds quantity to stock. Stock is capped at math.MaxInt.
func (r *GORMSweetRepository) Increment(ctx context.Context, id uint, quantity int) (*models.Sweet, error) {
	var sweet *models.Sweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ? AND quantity <= ?", id, math.MaxInt-quantity).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to increment stock of sweet %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			if _, err := findSweet(tx, id); err != nil {
				return err
			}
			return ErrStockOverflow
		}
		var err error
		sweet, err = findSweet(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sweet, nil
}

// Delete removes a sweet by its ID.
func (r *GORMSweetRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Sweet{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete sweet %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func findSweet(db *gorm.DB, id uint) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := db.First(&sweet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sweet by ID %d: %w", id, err)
	}
	return &sweet, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
