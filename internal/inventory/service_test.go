package inventory

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/catalog"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/metrics"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Material{},
		&models.Warehouse{},
		&models.MaterialStock{},
		&models.MaterialStockTransaction{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB, reg prometheus.Registerer) Service {
	t.Helper()
	logg := logger.New(logger.Options{
		ServiceName: "inventory-test",
		Level:       zerolog.ErrorLevel,
		Output:      io.Discard,
	})
	svc, err := NewService(ServiceParams{
		Tx:      stubTxRunner{},
		Repo:    NewRepository(conn),
		Catalog: catalog.NewRepository(conn),
		Logger:  logg,
		Metrics: metrics.NewPaymentMetrics(reg),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedMaterial(t *testing.T, conn *gorm.DB, supplierID uint) *models.Material {
	t.Helper()
	material := &models.Material{
		SupplierID: supplierID,
		Name:       "organic cotton",
		Unit:       "m",
		Price:      decimal.NewFromInt(45000),
		IsActive:   true,
	}
	if err := conn.Create(material).Error; err != nil {
		t.Fatalf("seed material: %v", err)
	}
	return material
}

func seedWarehouse(t *testing.T, conn *gorm.DB, ownerID uint, isDefault bool) *models.Warehouse {
	t.Helper()
	warehouse := &models.Warehouse{
		OwnerUserID: ownerID,
		Name:        fmt.Sprintf("warehouse-%d", ownerID),
		IsDefault:   isDefault,
		IsActive:    true,
	}
	if err := conn.Create(warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	return warehouse
}

func onHand(t *testing.T, conn *gorm.DB, materialID, warehouseID uint) decimal.Decimal {
	t.Helper()
	var stock models.MaterialStock
	err := conn.Where("material_id = ? AND warehouse_id = ?", materialID, warehouseID).
		First(&stock).Error
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return stock.QuantityOnHand
}

func aggregate(t *testing.T, conn *gorm.DB, materialID uint) decimal.Decimal {
	t.Helper()
	var material models.Material
	if err := conn.First(&material, materialID).Error; err != nil {
		t.Fatalf("load material: %v", err)
	}
	return material.QuantityAvailable
}

func TestReceiveCreatesStockRowAndAggregate(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	material := seedMaterial(t, conn, 7)
	warehouse := seedWarehouse(t, conn, 7, true)

	txn, err := svc.Receive(ctx, ReceiveInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(50),
		Unit:        "m",
		Note:        "initial delivery",
	})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if txn.Type != enums.StockTransactionTypeSupplierReceipt {
		t.Fatalf("expected supplier receipt, got %s", txn.Type)
	}
	if !txn.BeforeQty.IsZero() || !txn.AfterQty.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected snapshots: before=%s after=%s", txn.BeforeQty, txn.AfterQty)
	}
	if got := onHand(t, conn, material.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50 on hand, got %s", got)
	}
	if got := aggregate(t, conn, material.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected aggregate 50, got %s", got)
	}
}

func TestReceiveRejectsNonPositiveQuantity(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)

	_, err := svc.Receive(context.Background(), ReceiveInput{
		MaterialID:  1,
		WarehouseID: 1,
		Quantity:    decimal.Zero,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAggregateSumsAcrossWarehouses(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	material := seedMaterial(t, conn, 7)
	first := seedWarehouse(t, conn, 7, true)
	second := seedWarehouse(t, conn, 7, false)

	for _, in := range []ReceiveInput{
		{MaterialID: material.ID, WarehouseID: first.ID, Quantity: decimal.NewFromInt(30)},
		{MaterialID: material.ID, WarehouseID: second.ID, Quantity: decimal.NewFromInt(20)},
	} {
		if _, err := svc.Receive(ctx, in); err != nil {
			t.Fatalf("Receive: %v", err)
		}
	}

	if got := aggregate(t, conn, material.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected aggregate 50, got %s", got)
	}
}

func TestDeductOverdraftAllowsNegativeOnHand(t *testing.T) {
	conn := newTestDB(t)
	reg := prometheus.NewRegistry()
	svc := newTestService(t, conn, reg)
	ctx := context.Background()

	material := seedMaterial(t, conn, 7)
	warehouse := seedWarehouse(t, conn, 7, true)
	if _, err := svc.Receive(ctx, ReceiveInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	txn, err := svc.Deduct(ctx, nil, DeductInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(15),
		Policy:      PolicyOverdraft,
	})
	if err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if !txn.AfterQty.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("expected after -5, got %s", txn.AfterQty)
	}
	if got := onHand(t, conn, material.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("expected -5 on hand, got %s", got)
	}
	// Aggregate clamps at zero even while the warehouse is overdrawn.
	if got := aggregate(t, conn, material.ID); !got.IsZero() {
		t.Fatalf("expected aggregate 0, got %s", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var overdrafts float64
	for _, family := range families {
		if family.GetName() == "inventory_overdraft_total" {
			for _, metric := range family.GetMetric() {
				overdrafts += metric.GetCounter().GetValue()
			}
		}
	}
	if overdrafts != 1 {
		t.Fatalf("expected 1 overdraft counted, got %v", overdrafts)
	}
}

func TestDeductStrictRejectsInsufficientStock(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	material := seedMaterial(t, conn, 7)
	warehouse := seedWarehouse(t, conn, 7, true)
	if _, err := svc.Receive(ctx, ReceiveInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	_, err := svc.Deduct(ctx, nil, DeductInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(15),
		Type:        enums.StockTransactionTypeProductionUsage,
		Policy:      PolicyStrict,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := onHand(t, conn, material.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stock moved on rejected deduction: %s", got)
	}
}

func TestDeductForOrderDeductsMaterialLines(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	material := seedMaterial(t, conn, 7)
	warehouse := seedWarehouse(t, conn, 7, true)
	if _, err := svc.Receive(ctx, ReceiveInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	order := &models.Order{ID: 42}
	details := []models.OrderDetail{
		{
			ItemType:   enums.OrderItemTypeMaterial,
			MaterialID: &material.ID,
			Quantity:   3,
			UnitPrice:  material.Price,
		},
		{
			ItemType: enums.OrderItemTypeProduct,
			Quantity: 1,
		},
	}
	if err := svc.DeductForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("DeductForOrder: %v", err)
	}

	if got := onHand(t, conn, material.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("expected 97 on hand, got %s", got)
	}

	var ledger []models.MaterialStockTransaction
	if err := conn.Where("order_id = ?", order.ID).Find(&ledger).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(ledger) != 1 {
		t.Fatalf("expected 1 sale entry, got %d", len(ledger))
	}
	if ledger[0].Type != enums.StockTransactionTypeCustomerSale {
		t.Fatalf("expected customer sale type, got %s", ledger[0].Type)
	}
}

func TestDeductForOrderSkipsSupplierWithoutDefaultWarehouse(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	material := seedMaterial(t, conn, 9)
	seedWarehouse(t, conn, 9, false)

	order := &models.Order{ID: 43}
	details := []models.OrderDetail{
		{ItemType: enums.OrderItemTypeMaterial, MaterialID: &material.ID, Quantity: 2},
	}
	if err := svc.DeductForOrder(ctx, nil, order, details); err != nil {
		t.Fatalf("DeductForOrder: %v", err)
	}

	var count int64
	if err := conn.Model(&models.MaterialStockTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no stock movement, got %d entries", count)
	}
}

func TestConsumeForProductionRejectsShortfall(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	material := seedMaterial(t, conn, 12)
	warehouse := seedWarehouse(t, conn, 12, true)
	if _, err := svc.Receive(ctx, ReceiveInput{
		MaterialID:  material.ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	_, err := svc.ConsumeForProduction(ctx, ConsumeInput{
		DesignerID: 12,
		Lines: []ConsumeLine{
			{MaterialID: material.ID, Quantity: decimal.NewFromInt(8), Unit: "m"},
		},
		Note: "batch 7",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := onHand(t, conn, material.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("stock moved on rejected batch: %s", got)
	}
}

func TestConsumeForProductionDeductsEachLine(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	cotton := seedMaterial(t, conn, 12)
	linen := seedMaterial(t, conn, 12)
	warehouse := seedWarehouse(t, conn, 12, true)
	for _, materialID := range []uint{cotton.ID, linen.ID} {
		if _, err := svc.Receive(ctx, ReceiveInput{
			MaterialID:  materialID,
			WarehouseID: warehouse.ID,
			Quantity:    decimal.NewFromInt(20),
		}); err != nil {
			t.Fatalf("Receive: %v", err)
		}
	}

	txns, err := svc.ConsumeForProduction(ctx, ConsumeInput{
		DesignerID: 12,
		Lines: []ConsumeLine{
			{MaterialID: cotton.ID, Quantity: decimal.NewFromInt(6), Unit: "m"},
			{MaterialID: linen.ID, Quantity: decimal.NewFromInt(4), Unit: "m"},
		},
		Note: "batch 8",
	})
	if err != nil {
		t.Fatalf("ConsumeForProduction: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(txns))
	}
	for _, txn := range txns {
		if txn.Type != enums.StockTransactionTypeProductionUsage {
			t.Fatalf("expected production usage type, got %s", txn.Type)
		}
	}
	if got := onHand(t, conn, cotton.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(14)) {
		t.Fatalf("expected 14 cotton on hand, got %s", got)
	}
	if got := onHand(t, conn, linen.ID, warehouse.ID); !got.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("expected 16 linen on hand, got %s", got)
	}
}
