package controllers

import (
	"net/http"

	"github.com/anavasquez/restyle-backend/api/responses"
	"github.com/anavasquez/restyle-backend/internal/invoices"
	"github.com/anavasquez/restyle-backend/pkg/logger"
)

// InvoiceDetail returns a single invoice with its product snapshot.
func InvoiceDetail(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseUUIDParam(r, "invoiceId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoice, err := svc.GetByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}

// InvoicesByUser returns the purchase history of the caller.
func InvoicesByUser(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListByUser(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}
