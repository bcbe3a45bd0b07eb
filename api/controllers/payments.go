package controllers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/ecofashion/ecofashion-backend/api/middleware"
	"github.com/ecofashion/ecofashion-backend/api/responses"
	paymentsvc "github.com/ecofashion/ecofashion-backend/internal/payments"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

// PayOrderWithGateway opens a gateway payment attempt and returns the
// redirect URL.
func PayOrderWithGateway(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uintParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateGatewayPaymentURL(r.Context(), middleware.UserIDFromContext(r.Context()), orderID, clientIP(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PayOrderWithWallet settles one order from the caller's wallet.
func PayOrderWithWallet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uintParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PayOrderWithWallet(r.Context(), middleware.UserIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// PayOrderGroupWithWallet settles every pending order of a checkout group
// atomically.
func PayOrderGroupWithWallet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := uuidParam(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.PayOrderGroupWithWallet(r.Context(), middleware.UserIDFromContext(r.Context()), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// VNPayReturn handles the browser redirect after a gateway payment.
func VNPayReturn(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.HandleGatewayReturn(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// VNPayIPN handles the server-to-server notification. The gateway expects an
// acknowledgement body with its own code vocabulary, never an HTTP error, so
// this endpoint bypasses the response envelope.
func VNPayIPN(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ack := svc.HandleGatewayIPN(r.Context(), r.URL.Query())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(ack); err != nil && logg != nil {
			logg.Error(r.Context(), "failed to write ipn ack", err)
		}
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
