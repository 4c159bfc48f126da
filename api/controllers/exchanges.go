package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anavasquez/restyle-backend/api/responses"
	"github.com/anavasquez/restyle-backend/api/validators"
	"github.com/anavasquez/restyle-backend/internal/exchanges"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
	"github.com/anavasquez/restyle-backend/pkg/logger"
)

type proposeExchangePayload struct {
	OwnerID            uuid.UUID `json:"owner_id" validate:"required"`
	OwnerProductID     uuid.UUID `json:"owner_product_id" validate:"required"`
	RequesterProductID uuid.UUID `json:"requester_product_id" validate:"required"`
}

type exchangeStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// ExchangePropose opens a barter: the caller offers one of their products for
// one of the owner's products.
func ExchangePropose(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requesterID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload proposeExchangePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		exchange, err := svc.Propose(ctx, exchanges.ProposeInput{
			OwnerID:            payload.OwnerID,
			RequesterID:        requesterID,
			OwnerProductID:     payload.OwnerProductID,
			RequesterProductID: payload.RequesterProductID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, exchange)
	}
}

// ExchangeAccept accepts a pending barter and marks its products sold.
func ExchangeAccept(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Accept(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ExchangeUpdateStatus moves a barter through the negotiation machine.
func ExchangeUpdateStatus(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload exchangeStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseExchangeStatus(payload.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown exchange status"))
			return
		}

		exchange, err := svc.UpdateStatus(ctx, id, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, exchange)
	}
}

// ExchangeDetail returns a single barter with its products.
func ExchangeDetail(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		exchange, err := svc.GetByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, exchange)
	}
}

// ExchangeList returns every barter in the system.
func ExchangeList(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rows, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// ExchangesByOwner returns the barters where the given user is the owner side.
func ExchangesByOwner(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := parseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.GetByOwner(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// ExchangesByRequester returns the barters where the given user is the
// requester side.
func ExchangesByRequester(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := parseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.GetByRequester(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// ExchangeDelete removes a barter.
func ExchangeDelete(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
