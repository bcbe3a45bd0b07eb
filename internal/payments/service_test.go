package payments

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/catalog"
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

const (
	platformUserID = 1000
	customerID     = 5
	supplierID     = 7
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubGateway struct {
	callback *vnpay.Callback
	parseErr error
}

func (s *stubGateway) BuildPayURL(params vnpay.PayURLParams) (string, error) {
	return "https://sandbox.vnpayment.vn/pay?vnp_TxnRef=" + params.TxnRef, nil
}

func (s *stubGateway) ParseCallback(values url.Values) (*vnpay.Callback, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return s.callback, nil
}

type fixture struct {
	conn    *gorm.DB
	gateway *stubGateway
	svc     Service
	wallets wallet.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:payments_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Material{},
		&models.Warehouse{},
		&models.MaterialStock{},
		&models.MaterialStockTransaction{},
		&models.OrderGroup{},
		&models.Order{},
		&models.OrderDetail{},
		&models.PaymentTransaction{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.OrderSellerSettlement{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "payments-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
	gateway := &stubGateway{}

	wallets, err := wallet.NewService(wallet.ServiceParams{
		Tx:             stubTxRunner{},
		Repo:           wallet.NewRepository(conn),
		Gateway:        gateway,
		PlatformUserID: platformUserID,
	})
	if err != nil {
		t.Fatalf("wallet.NewService: %v", err)
	}
	settlements, err := settlement.NewService(settlement.ServiceParams{
		Tx:             stubTxRunner{},
		Repo:           settlement.NewRepository(conn),
		Orders:         orders.NewRepository(conn),
		Wallets:        wallets,
		Logger:         logg,
		Metrics:        metrics.NewPaymentMetrics(nil),
		CommissionRate: decimal.RequireFromString("0.10"),
	})
	if err != nil {
		t.Fatalf("settlement.NewService: %v", err)
	}
	stock, err := inventory.NewService(inventory.ServiceParams{
		Tx:      stubTxRunner{},
		Repo:    inventory.NewRepository(conn),
		Catalog: catalog.NewRepository(conn),
		Logger:  logg,
		Metrics: metrics.NewPaymentMetrics(nil),
	})
	if err != nil {
		t.Fatalf("inventory.NewService: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Tx:          stubTxRunner{},
		Repo:        NewRepository(conn),
		Orders:      orders.NewRepository(conn),
		Wallets:     wallets,
		Settlements: settlements,
		Inventory:   stock,
		Gateway:     gateway,
		Logger:      logg,
		Metrics:     metrics.NewPaymentMetrics(nil),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{conn: conn, gateway: gateway, svc: svc, wallets: wallets}
}

// seedCatalog creates a material with 100 units in the supplier's default
// warehouse.
func (f *fixture) seedCatalog(t *testing.T) *models.Material {
	t.Helper()
	material := &models.Material{
		SupplierID: supplierID,
		Name:       "organic cotton",
		Unit:       "m",
		Price:      decimal.NewFromInt(100000),
		IsActive:   true,
	}
	if err := f.conn.Create(material).Error; err != nil {
		t.Fatalf("seed material: %v", err)
	}
	warehouse := &models.Warehouse{
		OwnerUserID: supplierID,
		Name:        "supplier warehouse",
		IsDefault:   true,
		IsActive:    true,
	}
	if err := f.conn.Create(warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	stock := &models.MaterialStock{
		MaterialID:     material.ID,
		WarehouseID:    warehouse.ID,
		QuantityOnHand: decimal.NewFromInt(100),
	}
	if err := f.conn.Create(stock).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return material
}

func (f *fixture) seedOrder(t *testing.T, material *models.Material, groupID *models.OrderGroup) *models.Order {
	t.Helper()
	expires := time.Now().Add(30 * time.Minute)
	order := &models.Order{
		UserID:            customerID,
		SellerType:        enums.SellerTypeSupplier,
		SellerID:          supplierID,
		ShippingAddress:   "12 Hang Gai, Hanoi",
		Subtotal:          decimal.NewFromInt(300000),
		TotalPrice:        decimal.NewFromInt(300000),
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusNone,
		ExpiresAt:         &expires,
	}
	if groupID != nil {
		order.OrderGroupID = &groupID.ID
	}
	if err := f.conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	detail := &models.OrderDetail{
		OrderID:    order.ID,
		ItemType:   enums.OrderItemTypeMaterial,
		MaterialID: &material.ID,
		SellerID:   supplierID,
		Quantity:   3,
		UnitPrice:  decimal.NewFromInt(100000),
		Status:     enums.OrderDetailStatusPending,
	}
	if err := f.conn.Create(detail).Error; err != nil {
		t.Fatalf("seed detail: %v", err)
	}
	return order
}

func (f *fixture) fundCustomer(t *testing.T, amount int64) *models.Wallet {
	t.Helper()
	w, err := f.wallets.GetOrCreate(context.Background(), customerID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := f.conn.Model(&models.Wallet{}).Where("id = ?", w.ID).
		Update("balance", decimal.NewFromInt(amount)).Error; err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
	w.Balance = decimal.NewFromInt(amount)
	return w
}

func (f *fixture) reloadOrder(t *testing.T, id uint) *models.Order {
	t.Helper()
	var order models.Order
	if err := f.conn.First(&order, id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return &order
}

func successCallback(txnRef string) *vnpay.Callback {
	payDate := time.Now()
	return &vnpay.Callback{
		TxnRef:        txnRef,
		ResponseCode:  vnpay.ResponseCodeSuccess,
		TransactionNo: "14422574",
		Amount:        decimal.NewFromInt(300000),
		BankCode:      "NCB",
		PayDate:       &payDate,
		Raw:           "vnp_TxnRef=" + txnRef,
	}
}

func TestCreateGatewayPaymentURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)

	result, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, "203.0.113.9")
	if err != nil {
		t.Fatalf("CreateGatewayPaymentURL: %v", err)
	}
	if result.PayURL == "" || result.TxnRef == "" {
		t.Fatalf("incomplete result: %+v", result)
	}

	txn, err := NewRepository(f.conn).FindByTxnRef(ctx, result.TxnRef)
	if err != nil {
		t.Fatalf("FindByTxnRef: %v", err)
	}
	if txn.Status != enums.PaymentStatusPending || txn.PayURL == nil {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if !txn.Amount.Equal(order.TotalPrice) {
		t.Fatalf("expected amount %s, got %s", order.TotalPrice, txn.Amount)
	}

	if _, err := f.svc.CreateGatewayPaymentURL(ctx, 99, order.ID, ""); err == nil {
		t.Fatal("expected ownership rejection")
	}
}

func TestGatewayCallbackSuccessIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)

	attempt, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, "")
	if err != nil {
		t.Fatalf("CreateGatewayPaymentURL: %v", err)
	}
	f.gateway.callback = successCallback(attempt.TxnRef)

	result, err := f.svc.HandleGatewayReturn(ctx, url.Values{})
	if err != nil {
		t.Fatalf("HandleGatewayReturn: %v", err)
	}
	if result.Status != enums.PaymentStatusPaid || result.AlreadyProcessed {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored := f.reloadOrder(t, order.ID)
	if stored.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected order paid, got %s", stored.PaymentStatus)
	}
	if stored.FulfillmentStatus != enums.FulfillmentStatusDelivered {
		t.Fatalf("expected delivered, got %s", stored.FulfillmentStatus)
	}

	settlements, err := settlement.NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("list settlements: %v", err)
	}
	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}

	var stock models.MaterialStock
	if err := f.conn.Where("material_id = ?", material.ID).First(&stock).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if !stock.QuantityOnHand.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("expected 97 on hand, got %s", stock.QuantityOnHand)
	}

	// Replaying the exact same callback changes nothing.
	replay, err := f.svc.HandleGatewayReturn(ctx, url.Values{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.AlreadyProcessed {
		t.Fatal("expected replay to be flagged")
	}
	settlements, _ = settlement.NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if len(settlements) != 1 {
		t.Fatalf("replay duplicated settlements: %d", len(settlements))
	}
	f.conn.Where("material_id = ?", material.ID).First(&stock)
	if !stock.QuantityOnHand.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("replay moved stock: %s", stock.QuantityOnHand)
	}
}

func TestGatewayCallbackFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)

	attempt, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, "")
	if err != nil {
		t.Fatalf("CreateGatewayPaymentURL: %v", err)
	}
	callback := successCallback(attempt.TxnRef)
	callback.ResponseCode = "24"
	f.gateway.callback = callback

	result, err := f.svc.HandleGatewayReturn(ctx, url.Values{})
	if err != nil {
		t.Fatalf("HandleGatewayReturn: %v", err)
	}
	if result.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}

	stored := f.reloadOrder(t, order.ID)
	if stored.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected order failed, got %s", stored.PaymentStatus)
	}
	if stored.FulfillmentStatus != enums.FulfillmentStatusNone {
		t.Fatalf("fulfillment moved on failure: %s", stored.FulfillmentStatus)
	}

	settlements, _ := settlement.NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if len(settlements) != 0 {
		t.Fatalf("settlements created on failure: %d", len(settlements))
	}
}

func TestTxnRefFallbackPicksLatestPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)

	if _, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, ""); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	second, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, "")
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}

	// Callback references the order but not any stored TxnRef.
	f.gateway.callback = successCallback(fmt.Sprintf("%d-000000", order.ID))

	result, err := f.svc.HandleGatewayReturn(ctx, url.Values{})
	if err != nil {
		t.Fatalf("HandleGatewayReturn: %v", err)
	}
	if result.TxnRef != second.TxnRef {
		t.Fatalf("expected fallback to newest attempt %s, got %s", second.TxnRef, result.TxnRef)
	}
}

func TestGatewayIPNAckCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)

	// Bad checksum.
	f.gateway.parseErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature")
	if resp := f.svc.HandleGatewayIPN(ctx, url.Values{}); resp.RspCode != IPNCodeBadChecksum {
		t.Fatalf("expected %s, got %s", IPNCodeBadChecksum, resp.RspCode)
	}
	f.gateway.parseErr = nil

	// Unknown order.
	f.gateway.callback = successCallback("424242-1")
	if resp := f.svc.HandleGatewayIPN(ctx, url.Values{}); resp.RspCode != IPNCodeOrderNotFound {
		t.Fatalf("expected %s, got %s", IPNCodeOrderNotFound, resp.RspCode)
	}

	// First confirmation succeeds, replay acks as already confirmed.
	attempt, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, "")
	if err != nil {
		t.Fatalf("CreateGatewayPaymentURL: %v", err)
	}
	f.gateway.callback = successCallback(attempt.TxnRef)
	if resp := f.svc.HandleGatewayIPN(ctx, url.Values{}); resp.RspCode != IPNCodeOK {
		t.Fatalf("expected %s, got %s", IPNCodeOK, resp.RspCode)
	}
	if resp := f.svc.HandleGatewayIPN(ctx, url.Values{}); resp.RspCode != IPNCodeAlreadyConfirmed {
		t.Fatalf("expected %s, got %s", IPNCodeAlreadyConfirmed, resp.RspCode)
	}
}

func TestPayOrderWithWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)
	f.fundCustomer(t, 500000)

	paid, err := f.svc.PayOrderWithWallet(ctx, customerID, order.ID)
	if err != nil {
		t.Fatalf("PayOrderWithWallet: %v", err)
	}
	if paid.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", paid.PaymentStatus)
	}

	customerWallet, _ := f.wallets.GetOrCreate(ctx, customerID)
	if !customerWallet.Balance.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("expected customer balance 200000, got %s", customerWallet.Balance)
	}
	platformWallet, _ := f.wallets.PlatformWallet(ctx)
	if !platformWallet.Balance.Equal(decimal.NewFromInt(300000)) {
		t.Fatalf("expected platform balance 300000, got %s", platformWallet.Balance)
	}

	txns, err := NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListByOrderID: %v", err)
	}
	if len(txns) != 1 || txns[0].Provider != "wallet" {
		t.Fatalf("expected one wallet payment transaction, got %+v", txns)
	}

	// Paying again conflicts.
	if _, err := f.svc.PayOrderWithWallet(ctx, customerID, order.ID); err == nil {
		t.Fatal("expected replay to conflict")
	}
}

func TestPayOrderWithWalletInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)
	f.fundCustomer(t, 1000)

	_, err := f.svc.PayOrderWithWallet(ctx, customerID, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	stored := f.reloadOrder(t, order.ID)
	if stored.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("order mutated on failed payment: %s", stored.PaymentStatus)
	}
	customerWallet, _ := f.wallets.GetOrCreate(ctx, customerID)
	if !customerWallet.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance mutated: %s", customerWallet.Balance)
	}
}

func TestPayOrderGroupWithWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)

	group := &models.OrderGroup{
		UserID:      customerID,
		Status:      enums.OrderGroupStatusInProgress,
		TotalOrders: 2,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}
	if err := f.conn.Create(group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	first := f.seedOrder(t, material, group)
	second := f.seedOrder(t, material, group)
	f.fundCustomer(t, 700000)

	paid, err := f.svc.PayOrderGroupWithWallet(ctx, customerID, group.ID)
	if err != nil {
		t.Fatalf("PayOrderGroupWithWallet: %v", err)
	}
	if len(paid) != 2 {
		t.Fatalf("expected 2 paid orders, got %d", len(paid))
	}
	for _, id := range []uint{first.ID, second.ID} {
		if got := f.reloadOrder(t, id); got.PaymentStatus != enums.PaymentStatusPaid {
			t.Fatalf("order %d not paid: %s", id, got.PaymentStatus)
		}
	}

	customerWallet, _ := f.wallets.GetOrCreate(ctx, customerID)
	if !customerWallet.Balance.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected balance 100000, got %s", customerWallet.Balance)
	}

	var stored models.OrderGroup
	if err := f.conn.First(&stored, "id = ?", group.ID).Error; err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if stored.Status != enums.OrderGroupStatusCompleted {
		t.Fatalf("expected completed group, got %s", stored.Status)
	}
}

func TestPayOrderGroupWithWalletAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)

	group := &models.OrderGroup{
		UserID:      customerID,
		Status:      enums.OrderGroupStatusInProgress,
		TotalOrders: 2,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}
	if err := f.conn.Create(group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	first := f.seedOrder(t, material, group)
	second := f.seedOrder(t, material, group)

	// Enough for one order, not both.
	f.fundCustomer(t, 400000)

	_, err := f.svc.PayOrderGroupWithWallet(ctx, customerID, group.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	for _, id := range []uint{first.ID, second.ID} {
		if got := f.reloadOrder(t, id); got.PaymentStatus != enums.PaymentStatusPending {
			t.Fatalf("order %d mutated: %s", id, got.PaymentStatus)
		}
	}
}

func TestOverlappingCallbacksApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)
	order := f.seedOrder(t, material, nil)

	attempt, err := f.svc.CreateGatewayPaymentURL(ctx, customerID, order.ID, "")
	if err != nil {
		t.Fatalf("CreateGatewayPaymentURL: %v", err)
	}
	f.gateway.callback = successCallback(attempt.TxnRef)

	// Fire the IPN between the return callback's pending read and its status
	// flip. The second clock read of the callback path sits exactly there.
	svc := f.svc.(*service)
	base := time.Now()
	var ipn *IPNResponse
	calls := 0
	svc.now = func() time.Time {
		calls++
		if calls == 2 && ipn == nil {
			ipn = f.svc.HandleGatewayIPN(ctx, url.Values{})
		}
		return base
	}

	result, err := f.svc.HandleGatewayReturn(ctx, url.Values{})
	if err != nil {
		t.Fatalf("HandleGatewayReturn: %v", err)
	}
	if ipn == nil || ipn.RspCode != IPNCodeOK {
		t.Fatalf("expected interleaved IPN to win the pending row, got %+v", ipn)
	}
	if !result.AlreadyProcessed {
		t.Fatal("expected the overlapped callback to surface as a replay")
	}
	if result.Status != enums.PaymentStatusPaid {
		t.Fatalf("replay must carry the stored outcome, got %s", result.Status)
	}

	var stock models.MaterialStock
	if err := f.conn.Where("material_id = ?", material.ID).First(&stock).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if !stock.QuantityOnHand.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("stock must move once, got %s on hand", stock.QuantityOnHand)
	}
	settlements, err := settlement.NewRepository(f.conn).ListByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("list settlements: %v", err)
	}
	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	if stored := f.reloadOrder(t, order.ID); stored.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected order paid, got %s", stored.PaymentStatus)
	}
}

func TestIndividuallyPaidGroupOrdersCompleteGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := f.seedCatalog(t)

	group := &models.OrderGroup{
		UserID:      customerID,
		Status:      enums.OrderGroupStatusInProgress,
		TotalOrders: 2,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}
	if err := f.conn.Create(group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	first := f.seedOrder(t, material, group)
	second := f.seedOrder(t, material, group)
	f.fundCustomer(t, 700000)

	if _, err := f.svc.PayOrderWithWallet(ctx, customerID, first.ID); err != nil {
		t.Fatalf("pay first order: %v", err)
	}

	var stored models.OrderGroup
	if err := f.conn.First(&stored, "id = ?", group.ID).Error; err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if stored.CompletedOrders != 1 {
		t.Fatalf("expected 1 completed order, got %d", stored.CompletedOrders)
	}
	if stored.Status != enums.OrderGroupStatusInProgress {
		t.Fatalf("group completed early: %s", stored.Status)
	}

	if _, err := f.svc.PayOrderWithWallet(ctx, customerID, second.ID); err != nil {
		t.Fatalf("pay second order: %v", err)
	}
	if err := f.conn.First(&stored, "id = ?", group.ID).Error; err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if stored.CompletedOrders != 2 {
		t.Fatalf("expected 2 completed orders, got %d", stored.CompletedOrders)
	}
	if stored.Status != enums.OrderGroupStatusCompleted {
		t.Fatalf("expected completed group, got %s", stored.Status)
	}
}
