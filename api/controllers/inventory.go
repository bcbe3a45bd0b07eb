package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/api/middleware"
	"github.com/ecofashion/ecofashion-backend/api/responses"
	"github.com/ecofashion/ecofashion-backend/api/validators"
	inventorysvc "github.com/ecofashion/ecofashion-backend/internal/inventory"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

type receiptRequest struct {
	MaterialID  uint            `json:"material_id" validate:"required"`
	WarehouseID uint            `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Unit        string          `json:"unit,omitempty"`
	Note        string          `json:"note,omitempty"`
}

type consumptionLineRequest struct {
	MaterialID uint            `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
	Unit       string          `json:"unit,omitempty"`
}

type consumptionRequest struct {
	Lines []consumptionLineRequest `json:"lines" validate:"required,min=1,dive"`
	Note  string                   `json:"note,omitempty"`
}

// InventoryReceive books incoming supplier stock into a warehouse.
func InventoryReceive(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload receiptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Receive(r.Context(), inventorysvc.ReceiveInput{
			MaterialID:  payload.MaterialID,
			WarehouseID: payload.WarehouseID,
			Quantity:    payload.Quantity,
			Unit:        payload.Unit,
			Note:        payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// InventoryConsume books a production batch's material usage against the
// caller's default warehouse. Shortfalls reject the whole batch.
func InventoryConsume(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload consumptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]inventorysvc.ConsumeLine, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, inventorysvc.ConsumeLine{
				MaterialID: line.MaterialID,
				Quantity:   line.Quantity,
				Unit:       line.Unit,
			})
		}

		txns, err := svc.ConsumeForProduction(r.Context(), inventorysvc.ConsumeInput{
			DesignerID: middleware.UserIDFromContext(r.Context()),
			Lines:      lines,
			Note:       payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txns)
	}
}
