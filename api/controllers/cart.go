package controllers

import (
	"net/http"

	"github.com/ecofashion/ecofashion-backend/api/middleware"
	"github.com/ecofashion/ecofashion-backend/api/responses"
	"github.com/ecofashion/ecofashion-backend/api/validators"
	cartsvc "github.com/ecofashion/ecofashion-backend/internal/cart"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

type addCartItemRequest struct {
	ItemType   string `json:"item_type" validate:"required,oneof=material design product"`
	MaterialID *uint  `json:"material_id,omitempty"`
	DesignID   *uint  `json:"design_id,omitempty"`
	ProductID  *uint  `json:"product_id,omitempty"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// CartFetch returns the caller's cart, creating an empty one on first touch.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// CartAddItem adds one catalog reference to the cart, merging duplicates.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), cartsvc.AddItemInput{
			ItemType:   enums.OrderItemType(payload.ItemType),
			MaterialID: payload.MaterialID,
			DesignID:   payload.DesignID,
			ProductID:  payload.ProductID,
			Quantity:   payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// CartUpdateItem changes the quantity of one cart line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uintParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateQuantity(r.Context(), middleware.UserIDFromContext(r.Context()), itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// CartRemoveItem deletes one cart line.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uintParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// CartClear empties the caller's cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Clear(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}
