package payments

import "context"

// Payment states reported by the provider.
const (
	StatusSucceeded      = "succeeded"
	StatusRequiresAction = "requires_action"
	StatusCanceled       = "canceled"
)

// Confirmation is the provider's view of a referenced payment.
type Confirmation struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// Intent is a freshly created, not yet confirmed payment.
type Intent struct {
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret"`
}

// Provider is the payment collaborator boundary. All money movement happens
// behind it; the checkout flow only creates intents and validates references.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
	RetrieveStatus(ctx context.Context, reference string) (*Confirmation, error)
}
