package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// Repository manages persistence for orders, order groups and line details.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrderGroup(ctx context.Context, group *models.OrderGroup) error
	FindOrderGroupByID(ctx context.Context, id uuid.UUID) (*models.OrderGroup, error)
	UpdateOrderGroup(ctx context.Context, group *models.OrderGroup) error
	AdvanceGroupProgress(ctx context.Context, groupID uuid.UUID) error
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrderByID(ctx context.Context, id uint) (*models.Order, error)
	ListOrdersByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	CreateOrderDetails(ctx context.Context, details []models.OrderDetail) error
	ListDetailsByOrderID(ctx context.Context, orderID uint) ([]models.OrderDetail, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrderGroup(ctx context.Context, group *models.OrderGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) FindOrderGroupByID(ctx context.Context, id uuid.UUID) (*models.OrderGroup, error) {
	var group models.OrderGroup
	err := r.db.WithContext(ctx).
		Preload("Orders").
		Preload("Orders.Details").
		First(&group, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order group not found")
		}
		return nil, err
	}
	return &group, nil
}

// UpdateOrderGroup saves the group row only; member orders are updated
// through their own repository calls.
func (r *repository) UpdateOrderGroup(ctx context.Context, group *models.OrderGroup) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(group).Error
}

// AdvanceGroupProgress counts one more paid member order. The increment is
// done in SQL so grouped orders paid through separate paths cannot lose an
// update, and the group flips to completed once every member is counted.
func (r *repository) AdvanceGroupProgress(ctx context.Context, groupID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("id = ?", groupID).
		Update("completed_orders", gorm.Expr("completed_orders + 1")).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("id = ? AND completed_orders >= total_orders", groupID).
		Update("status", enums.OrderGroupStatusCompleted).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Details").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrdersByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Details").
		Where("order_group_id = ?", groupID).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

func (r *repository) CreateOrderDetails(ctx context.Context, details []models.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *repository) ListDetailsByOrderID(ctx context.Context, orderID uint) ([]models.OrderDetail, error) {
	var details []models.OrderDetail
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}
