package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/catalog"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Policy selects how a deduction treats insufficient stock.
type Policy string

const (
	// PolicyOverdraft lets the sale complete and the warehouse balance go
	// negative; the discrepancy is logged, not fatal.
	PolicyOverdraft Policy = "overdraft"
	// PolicyStrict rejects the movement when on-hand stock is insufficient.
	PolicyStrict Policy = "strict"
)

// Service exposes the stock ledger operations.
type Service interface {
	Receive(ctx context.Context, input ReceiveInput) (*models.MaterialStockTransaction, error)
	Deduct(ctx context.Context, tx *gorm.DB, input DeductInput) (*models.MaterialStockTransaction, error)
	DeductForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, details []models.OrderDetail) error
	ConsumeForProduction(ctx context.Context, input ConsumeInput) ([]models.MaterialStockTransaction, error)
}

// ReceiveInput records incoming supplier stock.
type ReceiveInput struct {
	MaterialID  uint
	WarehouseID uint
	Quantity    decimal.Decimal
	Unit        string
	Note        string
}

// DeductInput removes stock from one warehouse.
type DeductInput struct {
	MaterialID  uint
	WarehouseID uint
	Quantity    decimal.Decimal
	Type        enums.StockTransactionType
	Unit        string
	Note        string
	OrderID     *uint
	Policy      Policy
}

// ConsumeInput deducts several materials from a designer's warehouse for one
// production batch. The whole batch is rejected if any line falls short.
type ConsumeInput struct {
	DesignerID uint
	Lines      []ConsumeLine
	Note       string
}

// ConsumeLine is one material requirement of a production batch.
type ConsumeLine struct {
	MaterialID uint
	Quantity   decimal.Decimal
	Unit       string
}

type service struct {
	tx      txRunner
	repo    Repository
	catalog catalog.Repository
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
}

// ServiceParams groups dependencies for the inventory service.
type ServiceParams struct {
	Tx      txRunner
	Repo    Repository
	Catalog catalog.Repository
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
}

// NewService wires the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      params.Tx,
		repo:    params.Repo,
		catalog: params.Catalog,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Receive books incoming supplier stock and refreshes the material aggregate.
func (s *service) Receive(ctx context.Context, input ReceiveInput) (*models.MaterialStockTransaction, error) {
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receive quantity must be positive")
	}

	var result *models.MaterialStockTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn, err := s.applyDelta(ctx, tx, deltaInput{
			materialID:  input.MaterialID,
			warehouseID: input.WarehouseID,
			delta:       input.Quantity,
			txnType:     enums.StockTransactionTypeSupplierReceipt,
			unit:        input.Unit,
			note:        input.Note,
			policy:      PolicyStrict,
		})
		if err != nil {
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

// Deduct removes stock inside the caller's transaction. Pass a nil tx only
// from call sites that already hold no transaction, such as manual
// adjustments in tests.
func (s *service) Deduct(ctx context.Context, tx *gorm.DB, input DeductInput) (*models.MaterialStockTransaction, error) {
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deduct quantity must be positive")
	}
	txnType := input.Type
	if txnType == "" {
		txnType = enums.StockTransactionTypeCustomerSale
	}
	policy := input.Policy
	if policy == "" {
		policy = PolicyOverdraft
	}
	return s.applyDelta(ctx, tx, deltaInput{
		materialID:  input.MaterialID,
		warehouseID: input.WarehouseID,
		delta:       input.Quantity.Neg(),
		txnType:     txnType,
		unit:        input.Unit,
		note:        input.Note,
		orderID:     input.OrderID,
		policy:      policy,
	})
}

// DeductForOrder deducts every material line of a paid order from its
// supplier's default warehouse. A missing default warehouse is a logged gap,
// not a payment failure.
func (s *service) DeductForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, details []models.OrderDetail) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	catalogRepo := s.catalog.WithTx(tx)
	orderID := order.ID

	for _, detail := range details {
		if detail.ItemType != enums.OrderItemTypeMaterial || detail.MaterialID == nil {
			continue
		}
		material, err := catalogRepo.FindMaterialByID(ctx, *detail.MaterialID)
		if err != nil {
			return err
		}
		warehouse, err := catalogRepo.FindDefaultWarehouse(ctx, material.SupplierID)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				warnCtx := s.logg.WithFields(ctx, map[string]any{
					"material_id": material.ID,
					"supplier_id": material.SupplierID,
					"order_id":    orderID,
				})
				s.logg.Warn(warnCtx, "no default warehouse for supplier, skipping stock deduction")
				continue
			}
			return err
		}

		qty := decimal.NewFromInt(int64(detail.Quantity))
		if _, err := s.Deduct(ctx, tx, DeductInput{
			MaterialID:  material.ID,
			WarehouseID: warehouse.ID,
			Quantity:    qty,
			Type:        enums.StockTransactionTypeCustomerSale,
			Unit:        material.Unit,
			Note:        fmt.Sprintf("sale for order #%d", orderID),
			OrderID:     &orderID,
			Policy:      PolicyOverdraft,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeForProduction deducts a designer's raw materials for one production
// batch under the strict policy: a shortfall is a planning error, so the
// whole batch rejects instead of overdrafting.
func (s *service) ConsumeForProduction(ctx context.Context, input ConsumeInput) ([]models.MaterialStockTransaction, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "production batch has no material lines")
	}

	var results []models.MaterialStockTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		warehouse, err := catalogRepo.FindDefaultWarehouse(ctx, input.DesignerID)
		if err != nil {
			return err
		}

		for _, line := range input.Lines {
			txn, err := s.applyDelta(ctx, tx, deltaInput{
				materialID:  line.MaterialID,
				warehouseID: warehouse.ID,
				delta:       line.Quantity.Neg(),
				txnType:     enums.StockTransactionTypeProductionUsage,
				unit:        line.Unit,
				note:        input.Note,
				policy:      PolicyStrict,
			})
			if err != nil {
				return err
			}
			results = append(results, *txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type deltaInput struct {
	materialID  uint
	warehouseID uint
	delta       decimal.Decimal
	txnType     enums.StockTransactionType
	unit        string
	note        string
	orderID     *uint
	policy      Policy
}

func (s *service) applyDelta(ctx context.Context, tx *gorm.DB, input deltaInput) (*models.MaterialStockTransaction, error) {
	repo := s.repo.WithTx(tx)
	catalogRepo := s.catalog.WithTx(tx)

	stock, err := repo.FindStock(ctx, input.materialID, input.warehouseID)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return nil, err
		}
		stock = &models.MaterialStock{
			MaterialID:     input.materialID,
			WarehouseID:    input.warehouseID,
			QuantityOnHand: decimal.Zero,
		}
		if err := repo.CreateStock(ctx, stock); err != nil {
			return nil, err
		}
	}

	before := stock.QuantityOnHand
	after := before.Add(input.delta)

	if after.IsNegative() && input.delta.IsNegative() {
		if input.policy == PolicyStrict {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("material %d has %s on hand, need %s", input.materialID, before, input.delta.Neg()))
		}
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"material_id":  input.materialID,
			"warehouse_id": input.warehouseID,
			"on_hand":      before.String(),
			"after":        after.String(),
		})
		s.logg.Warn(warnCtx, "stock overdraft permitted for sale")
		s.metrics.IncStockOverdraft()
	}

	if err := repo.UpdateStockQuantity(ctx, stock.ID, before, after); err != nil {
		return nil, err
	}

	txn := &models.MaterialStockTransaction{
		MaterialID:     input.materialID,
		WarehouseID:    input.warehouseID,
		QuantityChange: input.delta,
		BeforeQty:      before,
		AfterQty:       after,
		Type:           input.txnType,
		Unit:           input.unit,
		Note:           input.note,
		OrderID:        input.orderID,
	}
	if err := repo.CreateStockTransaction(ctx, txn); err != nil {
		return nil, err
	}

	sum, err := repo.SumOnHandByMaterial(ctx, input.materialID)
	if err != nil {
		return nil, err
	}
	if sum.IsNegative() {
		sum = decimal.Zero
	}
	if err := catalogRepo.UpdateMaterialQuantityAvailable(ctx, input.materialID, sum); err != nil {
		return nil, err
	}

	return txn, nil
}
