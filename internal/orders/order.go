package orders

import "time"

// StatusCompleted is the only status an order is ever created with.
const StatusCompleted = "completed"

// Order is the historical record of a completed checkout session. Created
// exactly once per session, never mutated.
type Order struct {
	ID               string    `json:"id"`
	CheckoutID       string    `json:"checkout_id"`
	PaymentReference string    `json:"payment_reference"`
	Status           string    `json:"status"`
	TotalAmount      int64     `json:"total_amount"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
}
