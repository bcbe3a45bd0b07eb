package checkout

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/cart"
	"github.com/ecofashion/ecofashion-backend/internal/catalog"
	"github.com/ecofashion/ecofashion-backend/internal/checkout/helpers"
	"github.com/ecofashion/ecofashion-backend/internal/orders"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a set of purchase lines into one order group with one order
// per seller.
type Service interface {
	CreateSession(ctx context.Context, userID uint, input CreateSessionInput) (*orders.GroupSummary, error)
	CreateSessionFromCart(ctx context.Context, userID uint, shippingAddress string) (*orders.GroupSummary, error)
}

// ItemInput is one requested purchase line. Exactly one of MaterialID,
// DesignID, ProductID must be set, matching ItemType.
type ItemInput struct {
	ItemType   enums.OrderItemType
	MaterialID *uint
	DesignID   *uint
	ProductID  *uint
	Quantity   int
}

// CreateSessionInput is the full checkout request.
type CreateSessionInput struct {
	ShippingAddress string
	Items           []ItemInput
}

type service struct {
	tx           txRunner
	orders       orders.Repository
	catalog      catalog.Repository
	carts        cart.Repository
	holdDuration time.Duration
	now          func() time.Time
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Tx           txRunner
	Orders       orders.Repository
	Catalog      catalog.Repository
	Carts        cart.Repository
	HoldDuration time.Duration
}

// NewService wires the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.HoldDuration <= 0 {
		return nil, fmt.Errorf("hold duration must be positive")
	}
	return &service{
		tx:           params.Tx,
		orders:       params.Orders,
		catalog:      params.Catalog,
		carts:        params.Carts,
		holdDuration: params.HoldDuration,
		now:          time.Now,
	}, nil
}

// CreateSession re-derives every price and seller from the catalog, groups
// lines per seller, and persists the group and its orders atomically. Any
// unknown or inactive reference rejects the whole call.
func (s *service) CreateSession(ctx context.Context, userID uint, input CreateSessionInput) (*orders.GroupSummary, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ShippingAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one item")
	}

	lines := make([]helpers.ResolvedLine, 0, len(input.Items))
	for _, item := range input.Items {
		line, err := s.resolveLine(ctx, item)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	groups := helpers.GroupBySeller(lines)

	expiresAt := s.now().Add(s.holdDuration)
	result := &orders.GroupSummary{ExpiresAt: expiresAt}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		group := &models.OrderGroup{
			UserID:      userID,
			Status:      enums.OrderGroupStatusInProgress,
			TotalOrders: len(groups),
			ExpiresAt:   expiresAt,
		}
		if err := ordersRepo.CreateOrderGroup(ctx, group); err != nil {
			return err
		}
		result.GroupID = group.ID

		for _, sellerGroup := range groups {
			subtotal := helpers.Subtotal(sellerGroup.Lines)
			orderExpiry := expiresAt
			order := &models.Order{
				UserID:            userID,
				OrderGroupID:      &group.ID,
				SellerType:        sellerGroup.Seller.Type,
				SellerID:          sellerGroup.Seller.ID,
				ShippingAddress:   input.ShippingAddress,
				Subtotal:          subtotal,
				TotalPrice:        subtotal,
				Status:            enums.OrderStatusPending,
				PaymentStatus:     enums.PaymentStatusPending,
				FulfillmentStatus: enums.FulfillmentStatusNone,
				ExpiresAt:         &orderExpiry,
			}
			if err := ordersRepo.CreateOrder(ctx, order); err != nil {
				return err
			}

			details := make([]models.OrderDetail, 0, len(sellerGroup.Lines))
			for _, line := range sellerGroup.Lines {
				detail := line.Detail
				detail.OrderID = order.ID
				detail.Status = enums.OrderDetailStatusPending
				details = append(details, detail)
			}
			if err := ordersRepo.CreateOrderDetails(ctx, details); err != nil {
				return err
			}

			order.Details = details
			result.Orders = append(result.Orders, orders.SummarizeOrder(*order))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSessionFromCart converts the user's cart into a checkout session and
// empties the cart once the session is created.
func (s *service) CreateSessionFromCart(ctx context.Context, userID uint, shippingAddress string) (*orders.GroupSummary, error) {
	record, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	input := CreateSessionInput{ShippingAddress: shippingAddress}
	for _, item := range record.Items {
		input.Items = append(input.Items, ItemInput{
			ItemType:   item.ItemType,
			MaterialID: item.MaterialID,
			DesignID:   item.DesignID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
		})
	}

	summary, err := s.CreateSession(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if err := s.carts.DeleteAllItems(ctx, record.ID); err != nil {
		return nil, err
	}
	return summary, nil
}

// resolveLine re-derives the authoritative unit price and seller for one
// line. Cart snapshots are never trusted here.
func (s *service) resolveLine(ctx context.Context, item ItemInput) (helpers.ResolvedLine, error) {
	if item.Quantity <= 0 {
		return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	detail := models.OrderDetail{
		ItemType: item.ItemType,
		Quantity: item.Quantity,
	}

	switch item.ItemType {
	case enums.OrderItemTypeMaterial:
		if item.MaterialID == nil {
			return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "material line requires a material id")
		}
		material, err := s.catalog.FindMaterialByID(ctx, *item.MaterialID)
		if err != nil {
			return helpers.ResolvedLine{}, err
		}
		if !material.IsActive {
			return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "material is not for sale")
		}
		detail.MaterialID = &material.ID
		detail.UnitPrice = material.Price
		detail.SellerID = material.SupplierID
		return helpers.ResolvedLine{
			Detail: detail,
			Seller: orders.SellerRef{Type: enums.SellerTypeSupplier, ID: material.SupplierID},
		}, nil

	case enums.OrderItemTypeDesign:
		if item.DesignID == nil {
			return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "design line requires a design id")
		}
		design, err := s.catalog.FindDesignByID(ctx, *item.DesignID)
		if err != nil {
			return helpers.ResolvedLine{}, err
		}
		if !design.IsActive {
			return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "design is not for sale")
		}
		detail.DesignID = &design.ID
		detail.UnitPrice = design.Price
		detail.SellerID = design.DesignerID
		return helpers.ResolvedLine{
			Detail: detail,
			Seller: orders.SellerRef{Type: enums.SellerTypeDesigner, ID: design.DesignerID},
		}, nil

	case enums.OrderItemTypeProduct:
		if item.ProductID == nil {
			return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "product line requires a product id")
		}
		product, err := s.catalog.FindProductByID(ctx, *item.ProductID)
		if err != nil {
			return helpers.ResolvedLine{}, err
		}
		if !product.IsActive {
			return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "product is not for sale")
		}
		// The selling designer is resolved through the parent design.
		design, err := s.catalog.FindDesignByID(ctx, product.DesignID)
		if err != nil {
			return helpers.ResolvedLine{}, err
		}
		detail.ProductID = &product.ID
		detail.UnitPrice = product.Price
		detail.SellerID = design.DesignerID
		return helpers.ResolvedLine{
			Detail: detail,
			Seller: orders.SellerRef{Type: enums.SellerTypeDesigner, ID: design.DesignerID},
		}, nil

	default:
		return helpers.ResolvedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown item type")
	}
}
