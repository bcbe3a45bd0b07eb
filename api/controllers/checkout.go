package controllers

import (
	"net/http"

	"github.com/ecofashion/ecofashion-backend/api/middleware"
	"github.com/ecofashion/ecofashion-backend/api/responses"
	"github.com/ecofashion/ecofashion-backend/api/validators"
	checkoutsvc "github.com/ecofashion/ecofashion-backend/internal/checkout"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

type checkoutItemRequest struct {
	ItemType   string `json:"item_type" validate:"required,oneof=material design product"`
	MaterialID *uint  `json:"material_id,omitempty"`
	DesignID   *uint  `json:"design_id,omitempty"`
	ProductID  *uint  `json:"product_id,omitempty"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type checkoutRequest struct {
	ShippingAddress string                `json:"shipping_address" validate:"required"`
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

type checkoutFromCartRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
}

// Checkout opens a checkout session: one order group with one order per
// seller, prices re-derived from the catalog.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.ItemInput{
				ItemType:   enums.OrderItemType(item.ItemType),
				MaterialID: item.MaterialID,
				DesignID:   item.DesignID,
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
			})
		}

		summary, err := svc.CreateSession(r.Context(), middleware.UserIDFromContext(r.Context()), checkoutsvc.CreateSessionInput{
			ShippingAddress: payload.ShippingAddress,
			Items:           items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

// CheckoutFromCart converts the caller's cart into a checkout session and
// clears the cart on success.
func CheckoutFromCart(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutFromCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.CreateSessionFromCart(r.Context(), middleware.UserIDFromContext(r.Context()), payload.ShippingAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}
