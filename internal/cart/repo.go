package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// Repository manages cart records and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.CartRecord) error
	FindByUserID(ctx context.Context, userID uint) (*models.CartRecord, error)
	FindItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error)
	FindItemByRef(ctx context.Context, cartID uint, itemType enums.OrderItemType, refID uint) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uint) error
	DeleteAllItems(ctx context.Context, cartID uint) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cart *models.CartRecord) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uint) (*models.CartRecord, error) {
	var cart models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemByRef(ctx context.Context, cartID uint, itemType enums.OrderItemType, refID uint) (*models.CartItem, error) {
	query := r.db.WithContext(ctx).Where("cart_id = ? AND item_type = ?", cartID, itemType)
	switch itemType {
	case enums.OrderItemTypeMaterial:
		query = query.Where("material_id = ?", refID)
	case enums.OrderItemTypeDesign:
		query = query.Where("design_id = ?", refID)
	case enums.OrderItemTypeProduct:
		query = query.Where("product_id = ?", refID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown cart item type")
	}

	var item models.CartItem
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (r *repository) DeleteAllItems(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
