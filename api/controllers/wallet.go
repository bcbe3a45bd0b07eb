package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/api/middleware"
	"github.com/ecofashion/ecofashion-backend/api/responses"
	"github.com/ecofashion/ecofashion-backend/api/validators"
	walletsvc "github.com/ecofashion/ecofashion-backend/internal/wallet"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/pagination"
)

type depositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type withdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description,omitempty"`
}

// WalletFetch returns the caller's wallet, creating it on first touch.
func WalletFetch(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := svc.GetOrCreate(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

// WalletDeposit opens a pending funding entry and returns the gateway URL.
func WalletDeposit(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload depositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Deposit(r.Context(), middleware.UserIDFromContext(r.Context()), payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// WalletDepositReturn confirms a deposit from the gateway redirect.
func WalletDepositReturn(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txn, err := svc.ConfirmDeposit(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// WalletRequestWithdrawal places a hold on the requested amount.
func WalletRequestWithdrawal(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload withdrawalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.RequestWithdrawal(r.Context(), middleware.UserIDFromContext(r.Context()), payload.Amount, payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// WalletCompleteWithdrawal finalizes a pending withdrawal hold.
func WalletCompleteWithdrawal(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := uintParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.CompleteWithdrawal(r.Context(), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// WalletFailWithdrawal refunds a pending withdrawal hold.
func WalletFailWithdrawal(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := uintParam(r, "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.FailWithdrawal(r.Context(), transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// WalletTransactions lists the caller's ledger entries, newest first.
func WalletTransactions(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListTransactions(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.Params{
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
