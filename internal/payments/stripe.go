package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// StripeProvider fulfils the Provider contract against Stripe payment intents.
type StripeProvider struct {
	api         *stripe.Client
	environment string
}

// NewStripeProvider initializes Stripe once with the configured secrets and env.
func NewStripeProvider(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*StripeProvider, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe payment provider initialized (%s)", env))
	}

	return &StripeProvider{
		api:         api,
		environment: env,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (p *StripeProvider) Environment() string {
	if p == nil {
		return ""
	}
	return p.environment
}

// CreateIntent opens a payment intent for the given amount and hands the
// client secret back for the card-collection widget.
func (p *StripeProvider) CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment currency is required")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	intent, err := p.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	return &Intent{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// RetrieveStatus loads the referenced payment intent for reconciliation.
func (p *StripeProvider) RetrieveStatus(ctx context.Context, reference string) (*Confirmation, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	intent, err := p.api.V1PaymentIntents.Retrieve(ctx, reference, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieving payment intent")
	}

	return &Confirmation{
		Reference: intent.ID,
		Status:    string(intent.Status),
		Amount:    intent.Amount,
		Currency:  strings.ToLower(string(intent.Currency)),
	}, nil
}

func normalizeEnv(env string) (string, error) {
	switch env {
	case testEnv, liveEnv:
		return env, nil
	case "":
		return testEnv, nil
	}
	return "", errInvalidStripeEnv
}

func validateAPIKey(env, apiKey string) error {
	isTestKey := strings.HasPrefix(apiKey, "sk_test_") || strings.HasPrefix(apiKey, "rk_test_")
	isLiveKey := strings.HasPrefix(apiKey, "sk_live_") || strings.HasPrefix(apiKey, "rk_live_")

	switch env {
	case testEnv:
		if isLiveKey {
			return fmt.Errorf("live stripe key provided for test environment")
		}
	case liveEnv:
		if isTestKey {
			return fmt.Errorf("test stripe key provided for live environment")
		}
		if !isLiveKey {
			return fmt.Errorf("live environment requires a live stripe key")
		}
	}
	return nil
}
