package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

// FakeProvider keeps payment intents in memory. Used by tests and by the demo
// deployment when no Stripe key is configured; intents it creates confirm
// immediately so the agent flow can run end to end without a card widget.
type FakeProvider struct {
	mu      sync.Mutex
	intents map[string]*Confirmation

	// AutoSucceed marks newly created intents as succeeded right away.
	AutoSucceed bool
}

// NewFakeProvider returns an auto-succeeding in-memory provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		intents:     make(map[string]*Confirmation),
		AutoSucceed: true,
	}
}

func (p *FakeProvider) CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	_ = ctx

	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment currency is required")
	}

	reference := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	status := StatusRequiresAction
	if p.AutoSucceed {
		status = StatusSucceeded
	}

	p.mu.Lock()
	p.intents[reference] = &Confirmation{
		Reference: reference,
		Status:    status,
		Amount:    amount,
		Currency:  strings.ToLower(currency),
	}
	p.mu.Unlock()

	return &Intent{
		Reference:    reference,
		ClientSecret: reference + "_secret_" + uuid.NewString(),
	}, nil
}

func (p *FakeProvider) RetrieveStatus(ctx context.Context, reference string) (*Confirmation, error) {
	_ = ctx

	p.mu.Lock()
	defer p.mu.Unlock()

	conf, ok := p.intents[reference]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %s not found", reference))
	}
	copied := *conf
	return &copied, nil
}

// Seed registers a confirmation under the given reference.
func (p *FakeProvider) Seed(conf Confirmation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[conf.Reference] = &conf
}

// Confirm flips an existing intent to succeeded.
func (p *FakeProvider) Confirm(reference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conf, ok := p.intents[reference]
	if !ok {
		return fmt.Errorf("payment %s not found", reference)
	}
	conf.Status = StatusSucceeded
	return nil
}
