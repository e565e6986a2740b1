package checkout

import (
	"encoding/json"
	"time"
)

// Status is the checkout session lifecycle state. Transitions only move
// forward: not_ready_for_payment -> ready_for_payment -> completed.
// Canceled and in_progress are part of the declared state space but no
// current transition produces them.
type Status string

const (
	StatusNotReadyForPayment Status = "not_ready_for_payment"
	StatusReadyForPayment    Status = "ready_for_payment"
	StatusCompleted          Status = "completed"
	StatusCanceled           Status = "canceled"
	StatusInProgress         Status = "in_progress"
)

// Total row labels, emitted in fixed order on every recompute.
const (
	TotalTypeSubtotal = "subtotal"
	TotalTypeShipping = "shipping"
	TotalTypeTax      = "tax"
	TotalTypeTotal    = "total"
)

// Buyer is optional contact info, merged field-by-field on update.
type Buyer struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Address is the fulfillment destination. Setting it enables tax calculation.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// LineItem carries per-product amounts in minor currency units.
type LineItem struct {
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	BaseAmount int64  `json:"base_amount"`
	Discount   int64  `json:"discount"`
	Subtotal   int64  `json:"subtotal"`
	Tax        int64  `json:"tax"`
	Total      int64  `json:"total"`
}

// FulfillmentOption is a shipping choice from the static table.
type FulfillmentOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// Total is one labeled row of the derived totals sequence.
type Total struct {
	Type        string `json:"type"`
	DisplayText string `json:"display_text"`
	Amount      int64  `json:"amount"`
}

// Session is the central checkout record.
type Session struct {
	ID                  string              `json:"id"`
	Status              Status              `json:"status"`
	Currency            string              `json:"currency"`
	LineItems           []LineItem          `json:"line_items"`
	FulfillmentAddress  *Address            `json:"fulfillment_address,omitempty"`
	FulfillmentOptions  []FulfillmentOption `json:"fulfillment_options"`
	FulfillmentOptionID string              `json:"fulfillment_option_id,omitempty"`
	Totals              []Total             `json:"totals"`
	Buyer               *Buyer              `json:"buyer,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// TotalAmount returns the grand total row, zero when totals were never
// computed.
func (s *Session) TotalAmount() int64 {
	for _, t := range s.Totals {
		if t.Type == TotalTypeTotal {
			return t.Amount
		}
	}
	return 0
}

// Clone deep-copies the session through its JSON form so stored records never
// alias caller-held slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		copied := *s
		return &copied
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		copied := *s
		return &copied
	}
	return &out
}

// ShippingOptions is the static fulfillment table attached to every session.
func ShippingOptions() []FulfillmentOption {
	return []FulfillmentOption{
		{ID: "standard", Name: "Standard Shipping", Amount: 500, Description: "5-7 business days"},
		{ID: "express", Name: "Express Shipping", Amount: 1500, Description: "2-3 business days"},
		{ID: "overnight", Name: "Overnight Shipping", Amount: 2500, Description: "Next business day"},
	}
}
