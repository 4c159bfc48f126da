package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anavasquez/restyle-backend/api/responses"
	"github.com/anavasquez/restyle-backend/api/validators"
	"github.com/anavasquez/restyle-backend/internal/cart"
	"github.com/anavasquez/restyle-backend/internal/checkout"
	"github.com/anavasquez/restyle-backend/pkg/logger"
)

type cartProductPayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type checkoutAddressPayload struct {
	AddressID *uuid.UUID `json:"address_id,omitempty"`

	Street     *string `json:"street,omitempty"`
	Number     *string `json:"number,omitempty"`
	City       *string `json:"city,omitempty"`
	Country    *string `json:"country,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
}

func (p checkoutAddressPayload) toSpec() checkout.AddressSpec {
	spec := checkout.AddressSpec{AddressID: p.AddressID}
	if p.Street != nil || p.City != nil || p.Country != nil || p.PostalCode != nil {
		fields := checkout.NewAddressFields{}
		if p.Street != nil {
			fields.Street = *p.Street
		}
		if p.Number != nil {
			fields.Number = *p.Number
		}
		if p.City != nil {
			fields.City = *p.City
		}
		if p.Country != nil {
			fields.Country = *p.Country
		}
		if p.PostalCode != nil {
			fields.PostalCode = *p.PostalCode
		}
		spec.New = &fields
	}
	return spec
}

// CartFetch returns the caller's cart with its current products.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.GetByUser(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// CartAddProduct places a product into the cart.
func CartAddProduct(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cartID, err := parseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.AddProduct(ctx, cartID, payload.ProductID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Get(ctx, cartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// CartRemoveProduct takes a product out of the cart.
func CartRemoveProduct(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cartID, err := parseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RemoveProduct(ctx, cartID, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Get(ctx, cartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// CartClear empties the cart.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cartID, err := parseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Clear(ctx, cartID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// CartTotal sums the prices of the products in the cart.
func CartTotal(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cartID, err := parseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		total, err := svc.Total(ctx, cartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"total": total})
	}
}

// Checkout converts the cart into an invoice shipped to the given address.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cartID, err := parseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload checkoutAddressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Checkout(ctx, cartID, payload.toSpec())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
