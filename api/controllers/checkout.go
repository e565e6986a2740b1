package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/responses"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/validators"
	checkoutsvc "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/checkout"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

type checkoutItemRequest struct {
	ID       string `json:"id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,min=1"`
}

type createCheckoutRequest struct {
	Items   []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Buyer   *checkoutsvc.Buyer    `json:"buyer,omitempty"`
	Address *checkoutsvc.Address  `json:"fulfillment_address,omitempty"`
}

type updateCheckoutRequest struct {
	Buyer               *checkoutsvc.Buyer   `json:"buyer,omitempty"`
	Address             *checkoutsvc.Address `json:"fulfillment_address,omitempty"`
	FulfillmentOptionID *string              `json:"fulfillment_option_id,omitempty"`
}

type completeCheckoutRequest struct {
	PaymentReference  string `json:"payment_reference" validate:"required"`
	ConfirmedAmount   int64  `json:"confirmed_amount" validate:"required,min=1"`
	ConfirmedCurrency string `json:"confirmed_currency" validate:"required"`
}

// CreateCheckoutSession opens a checkout session for the requested items.
func CreateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload createCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.ItemInput{ProductID: item.ID, Quantity: item.Quantity})
		}

		session, err := svc.Create(r.Context(), checkoutsvc.CreateInput{
			Items:   items,
			Buyer:   payload.Buyer,
			Address: payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// GetCheckoutSession reads one session by id.
func GetCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// UpdateCheckoutSession applies buyer, address, and fulfillment changes and
// returns the session with recomputed totals.
func UpdateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload updateCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Update(r.Context(), chi.URLParam(r, "id"), checkoutsvc.UpdateInput{
			Buyer:               payload.Buyer,
			Address:             payload.Address,
			FulfillmentOptionID: payload.FulfillmentOptionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// CompleteCheckoutSession finalizes payment for a ready session and returns
// the completed session with its order.
func CompleteCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload completeCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, order, err := svc.Complete(r.Context(), chi.URLParam(r, "id"), checkoutsvc.CompleteInput{
			PaymentReference:  payload.PaymentReference,
			ConfirmedAmount:   payload.ConfirmedAmount,
			ConfirmedCurrency: payload.ConfirmedCurrency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"checkout_session": session,
			"order":            order,
		})
	}
}
