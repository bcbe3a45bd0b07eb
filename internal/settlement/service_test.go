package settlement

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/orders"
	"github.com/ecofashion/ecofashion-backend/internal/wallet"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/metrics"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
	"github.com/ecofashion/ecofashion-backend/pkg/vnpay"
)

const platformUserID = 1000

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubGateway struct{}

func (stubGateway) BuildPayURL(params vnpay.PayURLParams) (string, error) {
	return "https://pay.example/" + params.TxnRef, nil
}

func (stubGateway) ParseCallback(values url.Values) (*vnpay.Callback, error) {
	return nil, fmt.Errorf("not used")
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	wallets wallet.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Order{},
		&models.OrderDetail{},
		&models.OrderSellerSettlement{},
		&models.Wallet{},
		&models.WalletTransaction{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	wallets, err := wallet.NewService(wallet.ServiceParams{
		Tx:             stubTxRunner{},
		Repo:           wallet.NewRepository(conn),
		Gateway:        stubGateway{},
		PlatformUserID: platformUserID,
	})
	if err != nil {
		t.Fatalf("wallet.NewService: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "settlement-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
	svc, err := NewService(ServiceParams{
		Tx:             stubTxRunner{},
		Repo:           NewRepository(conn),
		Orders:         orders.NewRepository(conn),
		Wallets:        wallets,
		Logger:         logg,
		Metrics:        metrics.NewPaymentMetrics(nil),
		CommissionRate: decimal.RequireFromString("0.10"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{conn: conn, svc: svc, wallets: wallets}
}

func (f *fixture) seedOrder(t *testing.T, sellerID uint, lines ...models.OrderDetail) (*models.Order, []models.OrderDetail) {
	t.Helper()
	order := &models.Order{
		UserID:            1,
		SellerType:        enums.SellerTypeSupplier,
		SellerID:          sellerID,
		ShippingAddress:   "12 Hang Gai, Hanoi",
		Status:            enums.OrderStatusProcessing,
		PaymentStatus:     enums.PaymentStatusPaid,
		FulfillmentStatus: enums.FulfillmentStatusDelivered,
	}
	if err := f.conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	for i := range lines {
		lines[i].OrderID = order.ID
		if err := f.conn.Create(&lines[i]).Error; err != nil {
			t.Fatalf("seed detail: %v", err)
		}
	}
	return order, lines
}

func (f *fixture) fundPlatform(t *testing.T, amount int64) *models.Wallet {
	t.Helper()
	ctx := context.Background()
	platform, err := f.wallets.PlatformWallet(ctx)
	if err != nil {
		t.Fatalf("PlatformWallet: %v", err)
	}
	if err := f.conn.Model(&models.Wallet{}).Where("id = ?", platform.ID).
		Update("balance", decimal.NewFromInt(amount)).Error; err != nil {
		t.Fatalf("fund platform: %v", err)
	}
	return platform
}

func materialLine(sellerID uint, quantity int, unitPrice int64) models.OrderDetail {
	return models.OrderDetail{
		ItemType:  enums.OrderItemTypeMaterial,
		SellerID:  sellerID,
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(unitPrice),
		Status:    enums.OrderDetailStatusConfirmed,
	}
}

func TestCreateForOrderComputesCommissionSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7,
		materialLine(7, 2, 100000),
		materialLine(7, 1, 50000),
	)

	created, err := f.svc.CreateForOrder(ctx, nil, order, details)
	if err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(created))
	}

	settlement := created[0]
	if !settlement.GrossAmount.Equal(decimal.NewFromInt(250000)) {
		t.Fatalf("expected gross 250000, got %s", settlement.GrossAmount)
	}
	if !settlement.CommissionAmount.Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("expected commission 25000, got %s", settlement.CommissionAmount)
	}
	if !settlement.NetAmount.Equal(decimal.NewFromInt(225000)) {
		t.Fatalf("expected net 225000, got %s", settlement.NetAmount)
	}
	if settlement.Status != enums.SettlementStatusPending {
		t.Fatalf("expected pending, got %s", settlement.Status)
	}

	var stored models.Order
	if err := f.conn.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if stored.NetAmount == nil || !stored.NetAmount.Equal(decimal.NewFromInt(225000)) {
		t.Fatalf("expected order net amount stamped, got %v", stored.NetAmount)
	}
}

func TestCreateForOrderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7, materialLine(7, 1, 80000))

	first, err := f.svc.CreateForOrder(ctx, nil, order, details)
	if err != nil {
		t.Fatalf("first CreateForOrder: %v", err)
	}
	second, err := f.svc.CreateForOrder(ctx, nil, order, details)
	if err != nil {
		t.Fatalf("second CreateForOrder: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 settlement on both calls, got %d and %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Fatal("expected the existing settlement to be returned")
	}

	var count int64
	if err := f.conn.Model(&models.OrderSellerSettlement{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestCreateForOrderSplitsPerSeller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7,
		materialLine(7, 1, 100000),
		materialLine(8, 1, 60000),
	)

	created, err := f.svc.CreateForOrder(ctx, nil, order, details)
	if err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(created))
	}
}

func TestReleaseForOrderPaysSellerOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7, materialLine(7, 1, 200000))
	if _, err := f.svc.CreateForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	f.fundPlatform(t, 1000000)

	report, err := f.svc.ReleaseForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ReleaseForOrder: %v", err)
	}
	if len(report.Released) != 1 || len(report.Skipped) != 0 {
		t.Fatalf("expected 1 released, got %+v", report)
	}

	sellerWallet, err := f.wallets.GetOrCreate(ctx, 7)
	if err != nil {
		t.Fatalf("GetOrCreate seller: %v", err)
	}
	if !sellerWallet.Balance.Equal(decimal.NewFromInt(180000)) {
		t.Fatalf("expected seller balance 180000, got %s", sellerWallet.Balance)
	}

	// A second pass finds nothing pending and pays nothing.
	report, err = f.svc.ReleaseForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("second ReleaseForOrder: %v", err)
	}
	if len(report.Released) != 0 {
		t.Fatalf("expected no double payout, got %d", len(report.Released))
	}
	sellerWallet, _ = f.wallets.GetOrCreate(ctx, 7)
	if !sellerWallet.Balance.Equal(decimal.NewFromInt(180000)) {
		t.Fatalf("seller balance moved on replay: %s", sellerWallet.Balance)
	}
}

func TestReleaseForOrderSkipsWhenPlatformUnderfunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7, materialLine(7, 1, 200000))
	if _, err := f.svc.CreateForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	f.fundPlatform(t, 1000)

	report, err := f.svc.ReleaseForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ReleaseForOrder: %v", err)
	}
	if len(report.Released) != 0 || len(report.Skipped) != 1 {
		t.Fatalf("expected 1 skip, got %+v", report)
	}
	if report.Skipped[0].Reason != SkipReasonPlatformUnderfunded {
		t.Fatalf("unexpected skip reason %q", report.Skipped[0].Reason)
	}

	remaining, err := NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListByOrderID: %v", err)
	}
	if remaining[0].Status != enums.SettlementStatusPending {
		t.Fatalf("expected settlement still pending, got %s", remaining[0].Status)
	}
}

func TestReleaseForOrderRequiresDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7, materialLine(7, 1, 90000))
	if _, err := f.svc.CreateForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	if err := f.conn.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("fulfillment_status", enums.FulfillmentStatusProcessing).Error; err != nil {
		t.Fatalf("update order: %v", err)
	}

	_, err := f.svc.ReleaseForOrder(ctx, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListForSellerPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		order, details := f.seedOrder(t, 7, materialLine(7, 1, 10000))
		if _, err := f.svc.CreateForOrder(ctx, nil, order, details); err != nil {
			t.Fatalf("CreateForOrder: %v", err)
		}
	}

	page, err := f.svc.ListForSeller(ctx, 7, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListForSeller: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}
}

func newServiceWithWallets(t *testing.T, conn *gorm.DB, wallets wallet.Service) Service {
	t.Helper()
	logg := logger.New(logger.Options{
		ServiceName: "settlement-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
	svc, err := NewService(ServiceParams{
		Tx:             stubTxRunner{},
		Repo:           NewRepository(conn),
		Orders:         orders.NewRepository(conn),
		Wallets:        wallets,
		Logger:         logg,
		Metrics:        metrics.NewPaymentMetrics(nil),
		CommissionRate: decimal.RequireFromString("0.10"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// guardTrippedWallets loses every balance guard, like a payout racing another
// writer on the same wallet row.
type guardTrippedWallets struct {
	wallet.Service
}

func (guardTrippedWallets) Transfer(ctx context.Context, tx *gorm.DB, input wallet.TransferInput) (*wallet.TransferResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet balance changed concurrently")
}

// racedReleaseWallets releases the settlement row behind the caller's back
// right after the transfer, like a concurrent run winning MarkReleased.
type racedReleaseWallets struct {
	wallet.Service
	conn *gorm.DB
}

func (w *racedReleaseWallets) Transfer(ctx context.Context, tx *gorm.DB, input wallet.TransferInput) (*wallet.TransferResult, error) {
	res, err := w.Service.Transfer(ctx, tx, input)
	if err != nil {
		return nil, err
	}
	if input.SettlementID != nil {
		err := w.conn.Model(&models.OrderSellerSettlement{}).
			Where("id = ?", *input.SettlementID).
			Update("status", enums.SettlementStatusReleased).Error
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func TestReleaseForOrderReportsBalanceContention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7, materialLine(7, 1, 200000))
	if _, err := f.svc.CreateForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	f.fundPlatform(t, 1000000)

	contended := newServiceWithWallets(t, f.conn, guardTrippedWallets{Service: f.wallets})
	report, err := contended.ReleaseForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ReleaseForOrder: %v", err)
	}
	if len(report.Released) != 0 || len(report.Skipped) != 1 {
		t.Fatalf("expected 1 skip, got %+v", report)
	}
	if report.Skipped[0].Reason != SkipReasonBalanceContention {
		t.Fatalf("unexpected skip reason %q", report.Skipped[0].Reason)
	}

	remaining, err := NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListByOrderID: %v", err)
	}
	if remaining[0].Status != enums.SettlementStatusPending {
		t.Fatalf("contended payout must stay pending, got %s", remaining[0].Status)
	}
	sellerWallet, err := f.wallets.GetOrCreate(ctx, 7)
	if err != nil {
		t.Fatalf("GetOrCreate seller: %v", err)
	}
	if !sellerWallet.Balance.IsZero() {
		t.Fatalf("no funds may move on contention, got %s", sellerWallet.Balance)
	}
}

func TestReleaseForOrderSkipsRowReleasedMidFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, details := f.seedOrder(t, 7, materialLine(7, 1, 200000))
	if _, err := f.svc.CreateForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("CreateForOrder: %v", err)
	}
	f.fundPlatform(t, 1000000)

	raced := newServiceWithWallets(t, f.conn, &racedReleaseWallets{Service: f.wallets, conn: f.conn})
	report, err := raced.ReleaseForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ReleaseForOrder: %v", err)
	}
	if len(report.Released) != 0 || len(report.Skipped) != 1 {
		t.Fatalf("expected 1 skip, got %+v", report)
	}
	if report.Skipped[0].Reason != SkipReasonAlreadyReleased {
		t.Fatalf("unexpected skip reason %q", report.Skipped[0].Reason)
	}
}
