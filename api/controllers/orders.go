package controllers

import (
	"net/http"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/responses"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/orders"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

// ListOrders returns all finalized orders, oldest first.
func ListOrders(store orders.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order store unavailable"))
			return
		}

		list, err := store.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}
