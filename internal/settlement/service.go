package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/orders"
	"github.com/ecofashion/ecofashion-backend/internal/wallet"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/metrics"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Skip reasons reported when a payout is left pending.
const (
	SkipReasonPlatformUnderfunded = "platform_underfunded"
	SkipReasonAlreadyReleased     = "already_released"
	SkipReasonWalletLocked        = "wallet_locked"
	SkipReasonBalanceContention   = "balance_contention"
)

// Service computes commission splits on payment and releases seller payouts.
type Service interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, details []models.OrderDetail) ([]models.OrderSellerSettlement, error)
	ReleaseForOrder(ctx context.Context, orderID uint) (*ReleaseReport, error)
	ReleaseForGroup(ctx context.Context, groupID uuid.UUID) (*ReleaseReport, error)
	ListForSeller(ctx context.Context, sellerID uint, params pagination.Params) (*SettlementPage, error)
}

// SkippedPayout records one settlement left pending during a release pass.
type SkippedPayout struct {
	SettlementID uuid.UUID `json:"settlement_id"`
	SellerID     uint      `json:"seller_id"`
	Reason       string    `json:"reason"`
}

// ReleaseReport summarizes one release pass. A skipped payout stays pending
// and is retried on the next pass.
type ReleaseReport struct {
	Released []models.OrderSellerSettlement `json:"released"`
	Skipped  []SkippedPayout                `json:"skipped"`
}

// SettlementPage is one cursor page of a seller's payout history.
type SettlementPage struct {
	Items      []models.OrderSellerSettlement `json:"items"`
	NextCursor string                         `json:"next_cursor,omitempty"`
}

type service struct {
	tx             txRunner
	repo           Repository
	orders         orders.Repository
	wallets        wallet.Service
	logg           *logger.Logger
	metrics        *metrics.PaymentMetrics
	commissionRate decimal.Decimal
	now            func() time.Time
}

// ServiceParams groups dependencies for the settlement service.
type ServiceParams struct {
	Tx             txRunner
	Repo           Repository
	Orders         orders.Repository
	Wallets        wallet.Service
	Logger         *logger.Logger
	Metrics        *metrics.PaymentMetrics
	CommissionRate decimal.Decimal
}

// NewService wires the settlement service. The commission rate is fixed at
// construction and stamped onto each settlement row when it is created.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.CommissionRate.IsNegative() || params.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate must be within [0, 1]")
	}
	return &service{
		tx:             params.Tx,
		repo:           params.Repo,
		orders:         params.Orders,
		wallets:        params.Wallets,
		logg:           params.Logger,
		metrics:        params.Metrics,
		commissionRate: params.CommissionRate,
		now:            time.Now,
	}, nil
}

// CreateForOrder writes one pending settlement per seller of a newly paid
// order and stamps the commission columns onto the order. Calling it again
// for the same order returns the existing rows untouched; the unique
// (order, seller) index backstops a racing duplicate.
func (s *service) CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, details []models.OrderDetail) ([]models.OrderSellerSettlement, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	shares, err := s.sellerShares(order, details)
	if err != nil {
		return nil, err
	}

	var created []models.OrderSellerSettlement
	totalCommission := decimal.Zero
	totalNet := decimal.Zero
	for _, share := range shares {
		commission := share.gross.Mul(s.commissionRate).Round(2)
		net := share.gross.Sub(commission)

		settlement := models.OrderSellerSettlement{
			ID:               uuid.New(),
			OrderID:          order.ID,
			SellerID:         share.seller.ID,
			SellerType:       share.seller.Type,
			GrossAmount:      share.gross,
			CommissionRate:   s.commissionRate,
			CommissionAmount: commission,
			NetAmount:        net,
			Status:           enums.SettlementStatusPending,
		}
		if err := repo.Create(ctx, &settlement); err != nil {
			return nil, err
		}
		created = append(created, settlement)
		totalCommission = totalCommission.Add(commission)
		totalNet = totalNet.Add(net)
	}

	rate := s.commissionRate
	order.CommissionRate = &rate
	order.CommissionAmount = &totalCommission
	order.NetAmount = &totalNet
	if err := s.orders.WithTx(tx).UpdateOrder(ctx, order); err != nil {
		return nil, err
	}
	return created, nil
}

type sellerShare struct {
	seller orders.SellerRef
	gross  decimal.Decimal
}

// sellerShares groups line totals by seller, falling back to the order-level
// seller for lines that carry none.
func (s *service) sellerShares(order *models.Order, details []models.OrderDetail) ([]sellerShare, error) {
	fallback, fallbackErr := orders.ResolveSeller(order, details)

	index := make(map[uint]int)
	var shares []sellerShare
	for _, detail := range details {
		seller := orders.SellerRef{ID: detail.SellerID, Type: order.SellerType}
		if seller.ID == 0 {
			if fallbackErr != nil {
				return nil, fallbackErr
			}
			seller = fallback
		} else if !seller.Type.IsValid() || seller.ID != order.SellerID {
			if detail.ItemType == enums.OrderItemTypeMaterial {
				seller.Type = enums.SellerTypeSupplier
			} else {
				seller.Type = enums.SellerTypeDesigner
			}
		}

		pos, ok := index[seller.ID]
		if !ok {
			index[seller.ID] = len(shares)
			shares = append(shares, sellerShare{seller: seller})
			pos = len(shares) - 1
		}
		shares[pos].gross = shares[pos].gross.Add(detail.LineTotal())
	}
	if len(shares) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no line items to settle")
	}
	return shares, nil
}

// ReleaseForOrder moves each pending payout of the order from the platform
// wallet to the seller wallet. Each payout commits in its own transaction so
// one underfunded or conflicted payout does not hold the rest hostage.
func (s *service) ReleaseForOrder(ctx context.Context, orderID uint) (*ReleaseReport, error) {
	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid")
	}
	if order.FulfillmentStatus != enums.FulfillmentStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not delivered")
	}

	settlements, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	report := &ReleaseReport{}
	var errs error
	for _, settlement := range settlements {
		if settlement.Status == enums.SettlementStatusReleased {
			continue
		}
		if err := s.releaseOne(ctx, report, settlement); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return report, errs
}

// ReleaseForGroup fans a release pass out over every order in the group.
// Orders that are not yet deliverable are skipped silently; they release on
// their own pass once delivered.
func (s *service) ReleaseForGroup(ctx context.Context, groupID uuid.UUID) (*ReleaseReport, error) {
	orderList, err := s.orders.ListOrdersByGroupID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	report := &ReleaseReport{}
	var errs error
	for _, order := range orderList {
		sub, err := s.ReleaseForOrder(ctx, order.ID)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		report.Released = append(report.Released, sub.Released...)
		report.Skipped = append(report.Skipped, sub.Skipped...)
	}
	return report, errs
}

func (s *service) releaseOne(ctx context.Context, report *ReleaseReport, settlement models.OrderSellerSettlement) error {
	sellerWallet, err := s.wallets.GetOrCreate(ctx, settlement.SellerID)
	if err != nil {
		return err
	}
	platformWallet, err := s.wallets.PlatformWallet(ctx)
	if err != nil {
		return err
	}
	if sellerWallet.Status == enums.WalletStatusLocked {
		s.skip(ctx, report, settlement, SkipReasonWalletLocked)
		return nil
	}

	var transferred bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderID := settlement.OrderID
		settlementID := settlement.ID
		_, err := s.wallets.Transfer(ctx, tx, wallet.TransferInput{
			FromWalletID: platformWallet.ID,
			ToWalletID:   sellerWallet.ID,
			Amount:       settlement.NetAmount,
			OrderID:      &orderID,
			SettlementID: &settlementID,
			Description:  fmt.Sprintf("settlement payout for order #%d", orderID),
		})
		if err != nil {
			return err
		}
		transferred = true
		return s.repo.WithTx(tx).MarkReleased(ctx, settlement.ID, s.now())
	})
	if err != nil {
		typed := pkgerrors.As(err)
		switch {
		case typed != nil && typed.Code() == pkgerrors.CodeInsufficientFunds:
			s.skip(ctx, report, settlement, SkipReasonPlatformUnderfunded)
			return nil
		case typed != nil && typed.Code() == pkgerrors.CodeConflict && transferred:
			// MarkReleased found the row already released; the rolled-back
			// transfer never landed.
			s.skip(ctx, report, settlement, SkipReasonAlreadyReleased)
			return nil
		case typed != nil && typed.Code() == pkgerrors.CodeConflict:
			// A wallet balance guard tripped before the payout settled; the
			// row is still pending and a later run retries it.
			s.skip(ctx, report, settlement, SkipReasonBalanceContention)
			return nil
		}
		return err
	}

	settlement.Status = enums.SettlementStatusReleased
	report.Released = append(report.Released, settlement)
	s.metrics.IncSettlementReleased()
	return nil
}

func (s *service) skip(ctx context.Context, report *ReleaseReport, settlement models.OrderSellerSettlement, reason string) {
	warnCtx := s.logg.WithFields(ctx, map[string]any{
		"settlement_id": settlement.ID.String(),
		"order_id":      settlement.OrderID,
		"seller_id":     settlement.SellerID,
		"reason":        reason,
	})
	s.logg.Warn(warnCtx, "settlement payout skipped")
	s.metrics.IncSettlementSkipped(reason)
	report.Skipped = append(report.Skipped, SkippedPayout{
		SettlementID: settlement.ID,
		SellerID:     settlement.SellerID,
		Reason:       reason,
	})
}

func (s *service) ListForSeller(ctx context.Context, sellerID uint, params pagination.Params) (*SettlementPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListBySellerID(ctx, sellerID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, err
	}

	page := &SettlementPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt})
	}
	return page, nil
}
