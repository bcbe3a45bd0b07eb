package wallet

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
)

// Repository manages wallets and their append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id uint) (*models.Wallet, error)
	FindByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction, apply bool) error
	ApplyTransaction(ctx context.Context, txn *models.WalletTransaction, status enums.WalletTransactionStatus, apply bool) error
	FindTransactionByID(ctx context.Context, id uint) (*models.WalletTransaction, error)
	FindTransactionByTxnRef(ctx context.Context, txnRef string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID uint, limit int, cursor *pagination.Cursor) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return &wallet, nil
}

// findForUpdate loads a wallet row under a FOR UPDATE lock so the balance
// read and the guarded update that follows serialize. Drivers without row
// locks fall back to the optimistic balance guard alone.
func (r *repository) findForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return &wallet, nil
}

// CreateTransaction writes one ledger entry, stamping balance snapshots from
// the wallet's state at this instant. When apply is true the wallet balance
// moves in the same database transaction; the update carries an optimistic
// balance guard so two racing mutations cannot both win a lost-update race.
func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction, apply bool) error {
	var wallet *models.Wallet
	var err error
	if apply {
		wallet, err = r.findForUpdate(ctx, txn.WalletID)
	} else {
		wallet, err = r.FindByID(ctx, txn.WalletID)
	}
	if err != nil {
		return err
	}

	before := wallet.Balance
	after := before
	if apply {
		after = before.Add(txn.Amount)
		if after.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance would go negative")
		}
		result := r.db.WithContext(ctx).
			Model(&models.Wallet{}).
			Where("id = ? AND balance = ?", wallet.ID, before).
			Update("balance", after)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "wallet balance changed concurrently")
		}
	}

	txn.BalanceBefore = before
	txn.BalanceAfter = after
	return r.db.WithContext(ctx).Create(txn).Error
}

// ApplyTransaction flips a pending entry to a terminal status. The flip is a
// guarded claim on the pending row, so two copies of the same entry loaded
// before either finalized cannot both apply it. When apply is true the
// entry's amount moves the wallet balance in the same database transaction
// and the snapshots are restamped to the moment the funds actually moved.
func (r *repository) ApplyTransaction(ctx context.Context, txn *models.WalletTransaction, status enums.WalletTransactionStatus, apply bool) error {
	if txn.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeConflict, "wallet transaction already finalized")
	}

	claim := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", txn.ID, enums.WalletTransactionStatusPending).
		Update("status", status)
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "wallet transaction already finalized")
	}
	txn.Status = status

	if apply {
		wallet, err := r.findForUpdate(ctx, txn.WalletID)
		if err != nil {
			return err
		}
		before := wallet.Balance
		after := before.Add(txn.Amount)
		if after.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance would go negative")
		}
		result := r.db.WithContext(ctx).
			Model(&models.Wallet{}).
			Where("id = ? AND balance = ?", wallet.ID, before).
			Update("balance", after)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "wallet balance changed concurrently")
		}
		if err := r.db.WithContext(ctx).
			Model(&models.WalletTransaction{}).
			Where("id = ?", txn.ID).
			Updates(map[string]any{"balance_before": before, "balance_after": after}).Error; err != nil {
			return err
		}
		txn.BalanceBefore = before
		txn.BalanceAfter = after
	}
	return nil
}

func (r *repository) FindTransactionByID(ctx context.Context, id uint) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	if err := r.db.WithContext(ctx).First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTransactionByTxnRef(ctx context.Context, txnRef string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("txn_ref = ?", txnRef).
		Order("created_at DESC, id DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID uint, limit int, cursor *pagination.Cursor) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var list []models.WalletTransaction
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
