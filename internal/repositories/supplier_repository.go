package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/tilehub/backend/internal/models"
	"gorm.io/gorm"
)

// SupplierRepository defines the interface for supplier profile operations
type SupplierRepository interface {
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	GetSupplierByID(ctx context.Context, id uint) (*models.Supplier, error)
	SearchSuppliers(ctx context.Context, filter models.SupplierFilter) ([]models.Supplier, error)
}

// PostgresSupplierRepository implements SupplierRepository for PostgreSQL
type PostgresSupplierRepository struct {
	db *gorm.DB
}

// NewPostgresSupplierRepository creates a new PostgresSupplierRepository
func NewPostgresSupplierRepository(db *gorm.DB) *PostgresSupplierRepository {
	return &PostgresSupplierRepository{db: db}
}

func (r *PostgresSupplierRepository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}
	return nil
}

func (r *PostgresSupplierRepository) GetSupplierByID(ctx context.Context, id uint) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("get supplier %d: %w", id, err)
	}
	return &supplier, nil
}

// SearchSuppliers filters by location and service, both case-insensitive.
// Location is a substring match so "york" finds "North Yorkshire".
func (r *PostgresSupplierRepository) SearchSuppliers(ctx context.Context, filter models.SupplierFilter) ([]models.Supplier, error) {
	q := r.db.WithContext(ctx).Model(&models.Supplier{})
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if svc := strings.TrimSpace(filter.Service); svc != "" {
		q = q.Where("LOWER(service) = ?", strings.ToLower(svc))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Skip > 0 {
		q = q.Offset(filter.Skip)
	}

	var suppliers []models.Supplier
	if err := q.Order("business_name ASC").Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("search suppliers: %w", err)
	}
	return suppliers, nil
}
