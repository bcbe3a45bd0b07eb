package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// Repository looks up the normalized catalog records the order core consumes.
// The catalog CRUD itself lives outside this service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindMaterialByID(ctx context.Context, id uint) (*models.Material, error)
	FindProductByID(ctx context.Context, id uint) (*models.Product, error)
	FindDesignByID(ctx context.Context, id uint) (*models.Design, error)
	FindDefaultWarehouse(ctx context.Context, ownerUserID uint) (*models.Warehouse, error)
	UpdateMaterialQuantityAvailable(ctx context.Context, materialID uint, quantity decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindMaterialByID(ctx context.Context, id uint) (*models.Material, error) {
	var material models.Material
	if err := r.db.WithContext(ctx).First(&material, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return nil, err
	}
	return &material, nil
}

func (r *repository) FindProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindDesignByID(ctx context.Context, id uint) (*models.Design, error) {
	var design models.Design
	if err := r.db.WithContext(ctx).First(&design, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return nil, err
	}
	return &design, nil
}

func (r *repository) FindDefaultWarehouse(ctx context.Context, ownerUserID uint) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND is_default = ?", ownerUserID, true).
		First(&warehouse).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "default warehouse not found")
		}
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) UpdateMaterialQuantityAvailable(ctx context.Context, materialID uint, quantity decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Material{}).
		Where("id = ?", materialID).
		Update("quantity_available", quantity).Error
}
