package payments

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/inventory"
	"github.com/ecofashion/ecofashion-backend/internal/orders"
	"github.com/ecofashion/ecofashion-backend/internal/settlement"
	"github.com/ecofashion/ecofashion-backend/internal/wallet"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/metrics"
	"github.com/ecofashion/ecofashion-backend/pkg/vnpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayClient interface {
	BuildPayURL(params vnpay.PayURLParams) (string, error)
	ParseCallback(values url.Values) (*vnpay.Callback, error)
}

// IPN acknowledgement codes the gateway expects instead of HTTP errors.
const (
	IPNCodeOK               = "00"
	IPNCodeOrderNotFound    = "01"
	IPNCodeAlreadyConfirmed = "02"
	IPNCodeBadChecksum      = "97"
	IPNCodeInternal         = "99"
)

// Service moves orders from pending to paid through the gateway and wallet
// paths.
type Service interface {
	CreateGatewayPaymentURL(ctx context.Context, userID, orderID uint, ipAddr string) (*GatewayPaymentResult, error)
	HandleGatewayReturn(ctx context.Context, values url.Values) (*CallbackResult, error)
	HandleGatewayIPN(ctx context.Context, values url.Values) *IPNResponse
	PayOrderWithWallet(ctx context.Context, userID, orderID uint) (*models.Order, error)
	PayOrderGroupWithWallet(ctx context.Context, userID uint, groupID uuid.UUID) ([]models.Order, error)
}

// GatewayPaymentResult carries the redirect for one payment attempt.
type GatewayPaymentResult struct {
	TxnRef string `json:"txn_ref"`
	PayURL string `json:"pay_url"`
}

// CallbackResult is the processed outcome of a gateway callback.
type CallbackResult struct {
	OrderID          uint                `json:"order_id"`
	TxnRef           string              `json:"txn_ref"`
	Status           enums.PaymentStatus `json:"status"`
	AlreadyProcessed bool                `json:"already_processed"`
}

// IPNResponse is the acknowledgement body VNPay polls for.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

type service struct {
	tx          txRunner
	repo        Repository
	orders      orders.Repository
	wallets     wallet.Service
	settlements settlement.Service
	inventory   inventory.Service
	gateway     gatewayClient
	logg        *logger.Logger
	metrics     *metrics.PaymentMetrics
	now         func() time.Time
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Tx          txRunner
	Repo        Repository
	Orders      orders.Repository
	Wallets     wallet.Service
	Settlements settlement.Service
	Inventory   inventory.Service
	Gateway     gatewayClient
	Logger      *logger.Logger
	Metrics     *metrics.PaymentMetrics
}

// NewService wires the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:          params.Tx,
		repo:        params.Repo,
		orders:      params.Orders,
		wallets:     params.Wallets,
		settlements: params.Settlements,
		inventory:   params.Inventory,
		gateway:     params.Gateway,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         time.Now,
	}, nil
}

// CreateGatewayPaymentURL opens a fresh payment attempt for the order. Every
// attempt gets its own TxnRef; older pending attempts stay pending and are
// simply never confirmed by the gateway.
func (s *service) CreateGatewayPaymentURL(ctx context.Context, userID, orderID uint, ipAddr string) (*GatewayPaymentResult, error) {
	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	if order.ExpiresAt != nil && order.ExpiresAt.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
	}

	txnRef := fmt.Sprintf("%d-%d", order.ID, s.now().UnixNano())
	payURL, err := s.gateway.BuildPayURL(vnpay.PayURLParams{
		TxnRef:    txnRef,
		Amount:    order.TotalPrice,
		OrderInfo: fmt.Sprintf("Thanh toan don hang %d", order.ID),
		IPAddr:    ipAddr,
	})
	if err != nil {
		return nil, err
	}

	txn := &models.PaymentTransaction{
		OrderID: order.ID,
		UserID:  userID,
		Amount:  order.TotalPrice,
		Status:  enums.PaymentStatusPending,
		TxnRef:  txnRef,
		PayURL:  &payURL,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return &GatewayPaymentResult{TxnRef: txnRef, PayURL: payURL}, nil
}

// HandleGatewayReturn processes the browser redirect after payment.
func (s *service) HandleGatewayReturn(ctx context.Context, values url.Values) (*CallbackResult, error) {
	callback, err := s.gateway.ParseCallback(values)
	if err != nil {
		return nil, err
	}
	return s.processCallback(ctx, callback, "return")
}

// HandleGatewayIPN processes the server-to-server notification. VNPay expects
// an acknowledgement code, never an HTTP error, so every failure maps to one.
func (s *service) HandleGatewayIPN(ctx context.Context, values url.Values) *IPNResponse {
	callback, err := s.gateway.ParseCallback(values)
	if err != nil {
		return &IPNResponse{RspCode: IPNCodeBadChecksum, Message: "Invalid signature"}
	}

	result, err := s.processCallback(ctx, callback, "ipn")
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return &IPNResponse{RspCode: IPNCodeOrderNotFound, Message: "Order not found"}
		}
		s.logg.Error(ctx, "ipn processing failed", err)
		return &IPNResponse{RspCode: IPNCodeInternal, Message: "Unknown error"}
	}
	if result.AlreadyProcessed {
		return &IPNResponse{RspCode: IPNCodeAlreadyConfirmed, Message: "Order already confirmed"}
	}
	return &IPNResponse{RspCode: IPNCodeOK, Message: "Confirm success"}
}

// processCallback applies one verified gateway callback exactly once. The
// early terminal check only short-circuits the common replay; the real
// guarantee is the guarded MarkTerminal claim, which lets exactly one
// concurrent callback win the pending row and apply side effects.
func (s *service) processCallback(ctx context.Context, callback *vnpay.Callback, channel string) (*CallbackResult, error) {
	started := s.now()
	var result *CallbackResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		txn, err := repo.FindByTxnRef(ctx, callback.TxnRef)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
				return err
			}
			orderID, parseErr := orderIDFromTxnRef(callback.TxnRef)
			if parseErr != nil {
				return err
			}
			txn, err = repo.FindLatestPendingByOrderID(ctx, orderID)
			if err != nil {
				return err
			}
		}

		if txn.Status.IsTerminal() {
			result = &CallbackResult{
				OrderID:          txn.OrderID,
				TxnRef:           txn.TxnRef,
				Status:           txn.Status,
				AlreadyProcessed: true,
			}
			return nil
		}

		order, err := ordersRepo.FindOrderByID(ctx, txn.OrderID)
		if err != nil {
			return err
		}

		responseCode := callback.ResponseCode
		raw := callback.Raw
		txn.GatewayResponseCode = &responseCode
		txn.RawPayload = &raw
		if callback.TransactionNo != "" {
			transactionNo := callback.TransactionNo
			txn.GatewayTransactionNo = &transactionNo
		}

		status := enums.PaymentStatusFailed
		if callback.Succeeded() {
			paidAt := s.now()
			status = enums.PaymentStatusPaid
			txn.PaidAt = &paidAt
		}

		claimed, err := repo.MarkTerminal(ctx, txn, status)
		if err != nil {
			return err
		}
		if !claimed {
			// Lost the race to a concurrent callback; its outcome stands.
			stored, err := repo.FindByTxnRef(ctx, txn.TxnRef)
			if err != nil {
				return err
			}
			result = &CallbackResult{
				OrderID:          stored.OrderID,
				TxnRef:           stored.TxnRef,
				Status:           stored.Status,
				AlreadyProcessed: true,
			}
			return nil
		}

		if status == enums.PaymentStatusPaid {
			if err := s.markOrderPaid(ctx, tx, order); err != nil {
				return err
			}
		} else {
			order.PaymentStatus = enums.PaymentStatusFailed
			if err := ordersRepo.UpdateOrder(ctx, order); err != nil {
				return err
			}
		}

		result = &CallbackResult{OrderID: order.ID, TxnRef: txn.TxnRef, Status: txn.Status}
		return nil
	})
	if err != nil {
		s.metrics.ObserveCallback(channel, "error", s.now().Sub(started))
		return nil, err
	}

	outcome := string(result.Status)
	if result.AlreadyProcessed {
		outcome = "replay"
	}
	s.metrics.ObserveCallback(channel, outcome, s.now().Sub(started))
	return result, nil
}

// PayOrderWithWallet settles an order from the customer's wallet balance in
// one transaction: debit customer, credit platform, mark paid.
func (s *service) PayOrderWithWallet(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	customerWallet, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	platformWallet, err := s.wallets.PlatformWallet(ctx)
	if err != nil {
		return nil, err
	}

	var paid *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.payOneOrderWithWallet(ctx, tx, userID, orderID, customerWallet, platformWallet)
		if err != nil {
			return err
		}
		paid = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientFunds {
			s.metrics.IncWalletPay("insufficient_funds")
		}
		return nil, err
	}
	s.metrics.IncWalletPay("success")
	return paid, nil
}

// PayOrderGroupWithWallet pays every pending order of a checkout group
// atomically. The balance is checked against the whole group before anything
// moves; partial group payment never happens.
func (s *service) PayOrderGroupWithWallet(ctx context.Context, userID uint, groupID uuid.UUID) ([]models.Order, error) {
	group, err := s.orders.FindOrderGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order group belongs to another user")
	}

	var pending []models.Order
	total := decimal.Zero
	for _, order := range group.Orders {
		if order.PaymentStatus == enums.PaymentStatusPaid {
			continue
		}
		pending = append(pending, order)
		total = total.Add(order.TotalPrice)
	}
	if len(pending) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order group already paid")
	}

	customerWallet, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customerWallet.Balance.LessThan(total) {
		s.metrics.IncWalletPay("insufficient_funds")
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance lower than group total")
	}
	platformWallet, err := s.wallets.PlatformWallet(ctx)
	if err != nil {
		return nil, err
	}

	var paid []models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, order := range pending {
			updated, err := s.payOneOrderWithWallet(ctx, tx, userID, order.ID, customerWallet, platformWallet)
			if err != nil {
				return err
			}
			paid = append(paid, *updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncWalletPay("success")
	return paid, nil
}

func (s *service) payOneOrderWithWallet(ctx context.Context, tx *gorm.DB, userID, orderID uint, customerWallet, platformWallet *models.Wallet) (*models.Order, error) {
	ordersRepo := s.orders.WithTx(tx)
	order, err := ordersRepo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	if order.ExpiresAt != nil && order.ExpiresAt.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired")
	}

	if _, err := s.wallets.Transfer(ctx, tx, wallet.TransferInput{
		FromWalletID: customerWallet.ID,
		ToWalletID:   platformWallet.ID,
		Amount:       order.TotalPrice,
		DebitType:    enums.WalletTransactionTypePayment,
		CreditType:   enums.WalletTransactionTypePayment,
		OrderID:      &order.ID,
		Description:  fmt.Sprintf("wallet payment for order #%d", order.ID),
	}); err != nil {
		return nil, err
	}

	txn := &models.PaymentTransaction{
		OrderID:  order.ID,
		UserID:   userID,
		Amount:   order.TotalPrice,
		Status:   enums.PaymentStatusPaid,
		TxnRef:   fmt.Sprintf("WAL-%d-%d", order.ID, s.now().UnixNano()),
		Provider: "wallet",
	}
	paidAt := s.now()
	txn.PaidAt = &paidAt
	if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
		return nil, err
	}

	if err := s.markOrderPaid(ctx, tx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// markOrderPaid is the shared post-payment path: order status flips, the
// fulfillment state machine advances, settlements are written, and supplier
// stock is deducted. Runs inside the caller's transaction.
func (s *service) markOrderPaid(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	ordersRepo := s.orders.WithTx(tx)

	next, err := orders.Transition(order.FulfillmentStatus, orders.EventPaymentConfirmed)
	if err != nil {
		return err
	}
	paidAt := s.now()
	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaymentDate = &paidAt
	order.Status = enums.OrderStatusProcessing
	order.FulfillmentStatus = next
	if err := ordersRepo.UpdateOrder(ctx, order); err != nil {
		return err
	}

	if order.OrderGroupID != nil {
		if err := ordersRepo.AdvanceGroupProgress(ctx, *order.OrderGroupID); err != nil {
			return err
		}
	}

	details, err := ordersRepo.ListDetailsByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := s.settlements.CreateForOrder(ctx, tx, order, details); err != nil {
		return err
	}
	return s.inventory.DeductForOrder(ctx, tx, order, details)
}

func orderIDFromTxnRef(txnRef string) (uint, error) {
	prefix, _, ok := strings.Cut(txnRef, "-")
	if !ok {
		return 0, fmt.Errorf("txn ref %q has no order prefix", txnRef)
	}
	id, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("txn ref %q has no order prefix", txnRef)
	}
	return uint(id), nil
}
