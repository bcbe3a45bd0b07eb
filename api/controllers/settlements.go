package controllers

import (
	"net/http"

	"github.com/ecofashion/ecofashion-backend/api/middleware"
	"github.com/ecofashion/ecofashion-backend/api/responses"
	"github.com/ecofashion/ecofashion-backend/api/validators"
	settlementsvc "github.com/ecofashion/ecofashion-backend/internal/settlement"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
)

// ReleaseOrderSettlements pays out every pending settlement of a delivered
// order. Skipped payouts are reported, not failed.
func ReleaseOrderSettlements(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uintParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.ReleaseForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ReleaseGroupSettlements runs the order release pass over every order of a
// checkout group.
func ReleaseGroupSettlements(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := uuidParam(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.ReleaseForGroup(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// SellerSettlements lists the caller's settlements, newest first.
func SellerSettlements(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForSeller(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
