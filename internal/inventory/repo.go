package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// Repository manages per-(material, warehouse) stock rows and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindStock(ctx context.Context, materialID, warehouseID uint) (*models.MaterialStock, error)
	CreateStock(ctx context.Context, stock *models.MaterialStock) error
	UpdateStockQuantity(ctx context.Context, stockID uint, before, after decimal.Decimal) error
	CreateStockTransaction(ctx context.Context, txn *models.MaterialStockTransaction) error
	SumOnHandByMaterial(ctx context.Context, materialID uint) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, materialID, warehouseID uint) ([]models.MaterialStockTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindStock(ctx context.Context, materialID, warehouseID uint) (*models.MaterialStock, error) {
	var stock models.MaterialStock
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND warehouse_id = ?", materialID, warehouseID).
		First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock row not found")
		}
		return nil, err
	}
	return &stock, nil
}

func (r *repository) CreateStock(ctx context.Context, stock *models.MaterialStock) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

// UpdateStockQuantity moves the on-hand quantity with an optimistic guard on
// the previous value so racing deductions cannot both win a lost update.
func (r *repository) UpdateStockQuantity(ctx context.Context, stockID uint, before, after decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.MaterialStock{}).
		Where("id = ? AND quantity_on_hand = ?", stockID, before).
		Update("quantity_on_hand", after)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "stock quantity changed concurrently")
	}
	return nil
}

func (r *repository) CreateStockTransaction(ctx context.Context, txn *models.MaterialStockTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) SumOnHandByMaterial(ctx context.Context, materialID uint) (decimal.Decimal, error) {
	var stocks []models.MaterialStock
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Find(&stocks).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, stock := range stocks {
		sum = sum.Add(stock.QuantityOnHand)
	}
	return sum, nil
}

func (r *repository) ListTransactions(ctx context.Context, materialID, warehouseID uint) ([]models.MaterialStockTransaction, error) {
	var list []models.MaterialStockTransaction
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND warehouse_id = ?", materialID, warehouseID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
