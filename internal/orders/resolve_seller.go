package orders

import (
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// SellerRef identifies the single seller an order or settlement is scoped to.
type SellerRef struct {
	Type enums.SellerType
	ID   uint
}

// ResolveSeller determines the seller for an order with one deterministic
// fallback chain: the order's own seller fields first, then the first line
// detail carrying a seller id. It never touches persistence.
func ResolveSeller(order *models.Order, details []models.OrderDetail) (SellerRef, error) {
	if order == nil {
		return SellerRef{}, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.SellerID != 0 {
		return SellerRef{Type: order.SellerType, ID: order.SellerID}, nil
	}
	for _, detail := range details {
		if detail.SellerID == 0 {
			continue
		}
		sellerType := order.SellerType
		if !sellerType.IsValid() {
			switch detail.ItemType {
			case enums.OrderItemTypeMaterial:
				sellerType = enums.SellerTypeSupplier
			default:
				sellerType = enums.SellerTypeDesigner
			}
		}
		return SellerRef{Type: sellerType, ID: detail.SellerID}, nil
	}
	return SellerRef{}, pkgerrors.New(pkgerrors.CodeNotFound, "order has no resolvable seller")
}
