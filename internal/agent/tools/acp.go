package tools

import (
	"context"
	"encoding/json"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/catalog"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/checkout"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

type productSearcher interface {
	Search(ctx context.Context, query string) ([]catalog.Product, error)
}

type searchProductsArgs struct {
	Query string `json:"query"`
}

type createCheckoutArgs struct {
	Items   []checkout.ItemInput `json:"items"`
	Buyer   *checkout.Buyer      `json:"buyer,omitempty"`
	Address *checkout.Address    `json:"fulfillment_address,omitempty"`
}

type updateCheckoutArgs struct {
	CheckoutSessionID   string            `json:"checkout_session_id"`
	Buyer               *checkout.Buyer   `json:"buyer,omitempty"`
	Address             *checkout.Address `json:"fulfillment_address,omitempty"`
	FulfillmentOptionID *string           `json:"fulfillment_option_id,omitempty"`
}

type completeCheckoutArgs struct {
	CheckoutSessionID string `json:"checkout_session_id"`
	PaymentReference  string `json:"payment_reference"`
	ConfirmedAmount   int64  `json:"confirmed_amount"`
	ConfirmedCurrency string `json:"confirmed_currency"`
}

// NewCommerceRegistry wires the agent-invokable checkout flow: product
// search, session creation, session update and completion.
func NewCommerceRegistry(svc checkout.Service, products productSearcher) (*Registry, error) {
	r := NewRegistry()

	register := func(t Tool) error { return r.Register(t) }

	addrSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"line1":       map[string]any{"type": "string"},
			"line2":       map[string]any{"type": "string"},
			"city":        map[string]any{"type": "string"},
			"state":       map[string]any{"type": "string"},
			"postal_code": map[string]any{"type": "string"},
			"country":     map[string]any{"type": "string"},
		},
		"required": []string{"line1", "city", "state", "postal_code", "country"},
	}
	buyerSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"first_name": map[string]any{"type": "string"},
			"last_name":  map[string]any{"type": "string"},
			"email":      map[string]any{"type": "string"},
			"phone":      map[string]any{"type": "string"},
		},
	}

	if err := register(Tool{
		Name:        "search_products",
		Description: "Search the product feed. Returns matching products with ids and prices in minor currency units.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Substring matched against product name, description and category. Empty returns everything.",
				},
			},
		},
		Handle: func(ctx context.Context, args json.RawMessage) (any, error) {
			var parsed searchProductsArgs
			if err := json.Unmarshal(args, &parsed); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search_products arguments")
			}
			found, err := products.Search(ctx, parsed.Query)
			if err != nil {
				return nil, err
			}
			return map[string]any{"products": found}, nil
		},
	}); err != nil {
		return nil, err
	}

	if err := register(Tool{
		Name:        "create_checkout",
		Description: "Create a checkout session from product selections. Quantities must be positive.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":       map[string]any{"type": "string"},
							"quantity": map[string]any{"type": "integer", "minimum": 1},
						},
						"required": []string{"id", "quantity"},
					},
					"minItems": 1,
				},
				"buyer":               buyerSchema,
				"fulfillment_address": addrSchema,
			},
			"required": []string{"items"},
		},
		Handle: func(ctx context.Context, args json.RawMessage) (any, error) {
			var parsed createCheckoutArgs
			if err := json.Unmarshal(args, &parsed); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid create_checkout arguments")
			}
			return svc.Create(ctx, checkout.CreateInput{
				Items:   parsed.Items,
				Buyer:   parsed.Buyer,
				Address: parsed.Address,
			})
		},
	}); err != nil {
		return nil, err
	}

	if err := register(Tool{
		Name:        "update_checkout",
		Description: "Update a checkout session: buyer contact info, fulfillment address and/or fulfillment option. The session becomes ready for payment once both address and option are set.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"checkout_session_id":   map[string]any{"type": "string"},
				"buyer":                 buyerSchema,
				"fulfillment_address":   addrSchema,
				"fulfillment_option_id": map[string]any{"type": "string"},
			},
			"required": []string{"checkout_session_id"},
		},
		Handle: func(ctx context.Context, args json.RawMessage) (any, error) {
			var parsed updateCheckoutArgs
			if err := json.Unmarshal(args, &parsed); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid update_checkout arguments")
			}
			if parsed.CheckoutSessionID == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout_session_id is required")
			}
			return svc.Update(ctx, parsed.CheckoutSessionID, checkout.UpdateInput{
				Buyer:               parsed.Buyer,
				Address:             parsed.Address,
				FulfillmentOptionID: parsed.FulfillmentOptionID,
			})
		},
	}); err != nil {
		return nil, err
	}

	if err := register(Tool{
		Name:        "complete_checkout",
		Description: "Complete a ready-for-payment checkout session with a confirmed payment reference. The confirmed amount and currency must match the session total exactly.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"checkout_session_id": map[string]any{"type": "string"},
				"payment_reference":   map[string]any{"type": "string"},
				"confirmed_amount":    map[string]any{"type": "integer"},
				"confirmed_currency":  map[string]any{"type": "string"},
			},
			"required": []string{"checkout_session_id", "payment_reference", "confirmed_amount", "confirmed_currency"},
		},
		Handle: func(ctx context.Context, args json.RawMessage) (any, error) {
			var parsed completeCheckoutArgs
			if err := json.Unmarshal(args, &parsed); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid complete_checkout arguments")
			}
			if parsed.CheckoutSessionID == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout_session_id is required")
			}
			session, order, err := svc.Complete(ctx, parsed.CheckoutSessionID, checkout.CompleteInput{
				PaymentReference:  parsed.PaymentReference,
				ConfirmedAmount:   parsed.ConfirmedAmount,
				ConfirmedCurrency: parsed.ConfirmedCurrency,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"checkout_session": session, "order": order}, nil
		},
	}); err != nil {
		return nil, err
	}

	return r, nil
}
