package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// WalletTransaction is an append-only wallet ledger entry. Amount is signed
// (positive credit, negative debit) and BalanceAfter = BalanceBefore + Amount
// at the instant of creation; replaying all entries in creation order must
// reproduce the wallet balance.
type WalletTransaction struct {
	ID            uint                          `gorm:"column:id;primaryKey;autoIncrement"`
	WalletID      uint                          `gorm:"column:wallet_id;not null;index"`
	Amount        decimal.Decimal               `gorm:"column:amount;type:decimal(18,2);not null"`
	BalanceBefore decimal.Decimal               `gorm:"column:balance_before;type:decimal(18,2);not null"`
	BalanceAfter  decimal.Decimal               `gorm:"column:balance_after;type:decimal(18,2);not null"`
	Type          enums.WalletTransactionType   `gorm:"column:type;type:text;not null"`
	Status        enums.WalletTransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderID       *uint                         `gorm:"column:order_id;index"`
	SettlementID  *uuid.UUID                    `gorm:"column:settlement_id;type:uuid;index"`
	TxnRef        *string                       `gorm:"column:txn_ref;index"`
	Description   string                        `gorm:"column:description"`
	CreatedAt     time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
