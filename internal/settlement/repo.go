package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
)

// Repository manages seller payout rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, settlement *models.OrderSellerSettlement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderSellerSettlement, error)
	ListByOrderID(ctx context.Context, orderID uint) ([]models.OrderSellerSettlement, error)
	ListBySellerID(ctx context.Context, sellerID uint, limit int, cursor *pagination.Cursor) ([]models.OrderSellerSettlement, error)
	MarkReleased(ctx context.Context, id uuid.UUID, releasedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, settlement *models.OrderSellerSettlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderSellerSettlement, error) {
	var settlement models.OrderSellerSettlement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
		}
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uint) ([]models.OrderSellerSettlement, error) {
	var list []models.OrderSellerSettlement
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("seller_id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListBySellerID(ctx context.Context, sellerID uint, limit int, cursor *pagination.Cursor) ([]models.OrderSellerSettlement, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("created_at < ?", cursor.CreatedAt)
	}

	var list []models.OrderSellerSettlement
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkReleased flips pending to released with a status guard so a settlement
// can only be released once, even under concurrent release calls.
func (r *repository) MarkReleased(ctx context.Context, id uuid.UUID, releasedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderSellerSettlement{}).
		Where("id = ? AND status = ?", id, enums.SettlementStatusPending).
		Updates(map[string]any{
			"status":      enums.SettlementStatusReleased,
			"released_at": releasedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "settlement already released")
	}
	return nil
}
