package wallet

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/db"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
	"github.com/ecofashion/ecofashion-backend/pkg/vnpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type payURLBuilder interface {
	BuildPayURL(params vnpay.PayURLParams) (string, error)
	ParseCallback(values url.Values) (*vnpay.Callback, error)
}

// Service exposes the wallet ledger operations.
type Service interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error)
	PlatformWallet(ctx context.Context) (*models.Wallet, error)
	Deposit(ctx context.Context, userID uint, amount decimal.Decimal) (*DepositResult, error)
	ConfirmDeposit(ctx context.Context, values url.Values) (*models.WalletTransaction, error)
	RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error)
	CompleteWithdrawal(ctx context.Context, transactionID uint) (*models.WalletTransaction, error)
	FailWithdrawal(ctx context.Context, transactionID uint) (*models.WalletTransaction, error)
	Transfer(ctx context.Context, tx *gorm.DB, input TransferInput) (*TransferResult, error)
	ListTransactions(ctx context.Context, userID uint, params pagination.Params) (*TransactionPage, error)
}

// DepositResult carries the pending deposit entry and the gateway redirect.
type DepositResult struct {
	Transaction *models.WalletTransaction `json:"transaction"`
	PayURL      string                    `json:"pay_url"`
}

// TransferInput moves amount from one wallet to another as a debit/credit
// pair. DebitType/CreditType default to Transfer entries.
type TransferInput struct {
	FromWalletID uint
	ToWalletID   uint
	Amount       decimal.Decimal
	DebitType    enums.WalletTransactionType
	CreditType   enums.WalletTransactionType
	OrderID      *uint
	SettlementID *uuid.UUID
	Description  string
}

// TransferResult returns both halves of the paired movement.
type TransferResult struct {
	Debit  *models.WalletTransaction
	Credit *models.WalletTransaction
}

// TransactionPage is one cursor page of wallet history.
type TransactionPage struct {
	Items      []models.WalletTransaction `json:"items"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

type service struct {
	tx             txRunner
	repo           Repository
	gateway        payURLBuilder
	platformUserID uint
	now            func() time.Time
}

// ServiceParams groups dependencies for the wallet service.
type ServiceParams struct {
	Tx             txRunner
	Repo           Repository
	Gateway        payURLBuilder
	PlatformUserID uint
}

// NewService wires the wallet service. The platform wallet owner is fixed at
// construction; it is never re-discovered per call.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.PlatformUserID == 0 {
		return nil, fmt.Errorf("platform wallet user id required")
	}
	return &service{
		tx:             params.Tx,
		repo:           params.Repo,
		gateway:        params.Gateway,
		platformUserID: params.PlatformUserID,
		now:            time.Now,
	}, nil
}

func (s *service) GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	created := &models.Wallet{
		UserID:         userID,
		Balance:        decimal.Zero,
		Status:         enums.WalletStatusActive,
		IsSystemWallet: userID == s.platformUserID,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByUserID(ctx, userID)
		}
		return nil, err
	}
	return created, nil
}

func (s *service) PlatformWallet(ctx context.Context) (*models.Wallet, error) {
	return s.GetOrCreate(ctx, s.platformUserID)
}

// Deposit opens a pending funding entry and hands back the gateway URL the
// user completes it with. The balance moves only when the callback confirms.
func (s *service) Deposit(ctx context.Context, userID uint, amount decimal.Decimal) (*DepositResult, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	wallet, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Status == enums.WalletStatusLocked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "wallet is locked")
	}

	txnRef := fmt.Sprintf("W%d-%d", wallet.ID, s.now().UnixNano())
	txn := &models.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        enums.WalletTransactionTypeDeposit,
		Status:      enums.WalletTransactionStatusPending,
		TxnRef:      &txnRef,
		Description: "wallet deposit via vnpay",
	}
	if err := s.repo.CreateTransaction(ctx, txn, false); err != nil {
		return nil, err
	}

	payURL, err := s.gateway.BuildPayURL(vnpay.PayURLParams{
		TxnRef:    txnRef,
		Amount:    amount,
		OrderInfo: fmt.Sprintf("Nap vi EcoFashion %s", txnRef),
	})
	if err != nil {
		return nil, err
	}

	return &DepositResult{Transaction: txn, PayURL: payURL}, nil
}

// ConfirmDeposit handles the gateway return for a funding entry. Replays of a
// callback that already finalized the entry return the stored outcome without
// touching the balance again.
func (s *service) ConfirmDeposit(ctx context.Context, values url.Values) (*models.WalletTransaction, error) {
	callback, err := s.gateway.ParseCallback(values)
	if err != nil {
		return nil, err
	}

	var result *models.WalletTransaction
	var entryID uint
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindTransactionByTxnRef(ctx, callback.TxnRef)
		if err != nil {
			return err
		}
		if txn.Type != enums.WalletTransactionTypeDeposit {
			return pkgerrors.New(pkgerrors.CodeConflict, "txn ref does not reference a deposit")
		}
		entryID = txn.ID
		if txn.Status.IsTerminal() {
			result = txn
			return nil
		}

		if callback.Succeeded() {
			if err := repo.ApplyTransaction(ctx, txn, enums.WalletTransactionStatusSuccess, true); err != nil {
				return err
			}
		} else {
			if err := repo.ApplyTransaction(ctx, txn, enums.WalletTransactionStatusFail, false); err != nil {
				return err
			}
		}
		result = txn
		return nil
	})
	if err != nil {
		if stored, ok := s.finalizedElsewhere(ctx, entryID, enums.WalletTransactionTypeDeposit, err); ok {
			return stored, nil
		}
		return nil, err
	}
	return result, nil
}

// finalizedElsewhere resolves a finalize conflict after the losing transaction
// rolled back. When the stored entry turned out terminal a concurrent caller
// already applied it, so the stored outcome is served as the replay result.
func (s *service) finalizedElsewhere(ctx context.Context, entryID uint, txnType enums.WalletTransactionType, cause error) (*models.WalletTransaction, bool) {
	typed := pkgerrors.As(cause)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict || entryID == 0 {
		return nil, false
	}
	stored, err := s.repo.FindTransactionByID(ctx, entryID)
	if err != nil || stored.Type != txnType || !stored.Status.IsTerminal() {
		return nil, false
	}
	return stored, true
}

// RequestWithdrawal reserves the funds immediately: the pending debit moves
// the balance now so an in-flight withdrawal cannot be double-spent, and a
// refund entry restores it if the external payout fails.
func (s *service) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	var result *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if wallet.Status == enums.WalletStatusLocked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "wallet is locked")
		}
		if wallet.Balance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance lower than withdrawal amount")
		}

		txn := &models.WalletTransaction{
			WalletID:    wallet.ID,
			Amount:      amount.Neg(),
			Type:        enums.WalletTransactionTypeWithdrawal,
			Status:      enums.WalletTransactionStatusPending,
			Description: description,
		}
		if err := repo.CreateTransaction(ctx, txn, true); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteWithdrawal finalizes the hold; the funds already left the balance.
func (s *service) CompleteWithdrawal(ctx context.Context, transactionID uint) (*models.WalletTransaction, error) {
	return s.finalizeWithdrawal(ctx, transactionID, true)
}

// FailWithdrawal releases the hold with a compensating refund entry.
func (s *service) FailWithdrawal(ctx context.Context, transactionID uint) (*models.WalletTransaction, error) {
	return s.finalizeWithdrawal(ctx, transactionID, false)
}

func (s *service) finalizeWithdrawal(ctx context.Context, transactionID uint, succeeded bool) (*models.WalletTransaction, error) {
	var result *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindTransactionByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Type != enums.WalletTransactionTypeWithdrawal {
			return pkgerrors.New(pkgerrors.CodeConflict, "transaction is not a withdrawal")
		}
		if txn.Status.IsTerminal() {
			result = txn
			return nil
		}

		if succeeded {
			if err := repo.ApplyTransaction(ctx, txn, enums.WalletTransactionStatusSuccess, false); err != nil {
				return err
			}
		} else {
			if err := repo.ApplyTransaction(ctx, txn, enums.WalletTransactionStatusFail, false); err != nil {
				return err
			}
			refund := &models.WalletTransaction{
				WalletID:    txn.WalletID,
				Amount:      txn.Amount.Neg(),
				Type:        enums.WalletTransactionTypeRefund,
				Status:      enums.WalletTransactionStatusSuccess,
				Description: fmt.Sprintf("refund of failed withdrawal #%d", txn.ID),
			}
			if err := repo.CreateTransaction(ctx, refund, true); err != nil {
				return err
			}
		}
		result = txn
		return nil
	})
	if err != nil {
		if stored, ok := s.finalizedElsewhere(ctx, transactionID, enums.WalletTransactionTypeWithdrawal, err); ok {
			return stored, nil
		}
		return nil, err
	}
	return result, nil
}

// Transfer is the paired two-entry primitive payments and settlement build
// on. Callers run it inside their own transaction so either both entries
// land or neither does; a nil tx binds to the service's own connection.
func (s *service) Transfer(ctx context.Context, tx *gorm.DB, input TransferInput) (*TransferResult, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if input.FromWalletID == input.ToWalletID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer a wallet to itself")
	}

	debitType := input.DebitType
	if debitType == "" {
		debitType = enums.WalletTransactionTypeTransfer
	}
	creditType := input.CreditType
	if creditType == "" {
		creditType = enums.WalletTransactionTypeTransfer
	}

	repo := s.repo.WithTx(tx)

	from, err := repo.FindByID(ctx, input.FromWalletID)
	if err != nil {
		return nil, err
	}
	if from.Balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "source wallet balance too low")
	}

	debit := &models.WalletTransaction{
		WalletID:     input.FromWalletID,
		Amount:       input.Amount.Neg(),
		Type:         debitType,
		Status:       enums.WalletTransactionStatusSuccess,
		OrderID:      input.OrderID,
		SettlementID: input.SettlementID,
		Description:  input.Description,
	}
	if err := repo.CreateTransaction(ctx, debit, true); err != nil {
		return nil, err
	}

	credit := &models.WalletTransaction{
		WalletID:     input.ToWalletID,
		Amount:       input.Amount,
		Type:         creditType,
		Status:       enums.WalletTransactionStatusSuccess,
		OrderID:      input.OrderID,
		SettlementID: input.SettlementID,
		Description:  input.Description,
	}
	if err := repo.CreateTransaction(ctx, credit, true); err != nil {
		return nil, err
	}

	return &TransferResult{Debit: debit, Credit: credit}, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uint, params pagination.Params) (*TransactionPage, error) {
	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListTransactions(ctx, wallet.ID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
