package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// Repository manages gateway payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	MarkTerminal(ctx context.Context, txn *models.PaymentTransaction, status enums.PaymentStatus) (bool, error)
	FindByTxnRef(ctx context.Context, txnRef string) (*models.PaymentTransaction, error)
	FindLatestPendingByOrderID(ctx context.Context, orderID uint) (*models.PaymentTransaction, error)
	ListByOrderID(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// MarkTerminal moves a pending attempt to its terminal status with a guarded
// update. The WHERE clause claims the row: when a concurrent callback already
// finalized it, zero rows match and the caller must treat its own callback as
// a replay instead of applying side effects again.
func (r *repository) MarkTerminal(ctx context.Context, txn *models.PaymentTransaction, status enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", txn.ID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":                 status,
			"gateway_response_code":  txn.GatewayResponseCode,
			"gateway_transaction_no": txn.GatewayTransactionNo,
			"raw_payload":            txn.RawPayload,
			"paid_at":                txn.PaidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	txn.Status = status
	return true, nil
}

func (r *repository) FindByTxnRef(ctx context.Context, txnRef string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("txn_ref = ?", txnRef).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}

// FindLatestPendingByOrderID is the fallback for callbacks whose TxnRef no
// longer matches a row. Most-recent-first ordering is load-bearing: a retried
// payment leaves several pending rows and only the newest one was sent to the
// gateway.
func (r *repository) FindLatestPendingByOrderID(ctx context.Context, orderID uint) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Order("created_at DESC, txn_ref DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending payment transaction for order")
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error) {
	var list []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, txn_ref DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
