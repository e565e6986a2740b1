package controllers

import (
	"net/http"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/responses"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/validators"
	checkoutsvc "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/checkout"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/payments"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

type createPaymentIntentRequest struct {
	CheckoutSessionID string `json:"checkout_session_id" validate:"required"`
}

// CreatePaymentIntent opens a payment intent for a session's current total.
// The returned reference is what the complete call later reconciles against.
func CreatePaymentIntent(provider payments.Provider, svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments unavailable"))
			return
		}

		var payload createPaymentIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Get(r.Context(), payload.CheckoutSessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if session.Status != checkoutsvc.StatusReadyForPayment {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict,
				"checkout session is not ready for payment"))
			return
		}

		intent, err := provider.CreateIntent(r.Context(), session.TotalAmount(), session.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}
