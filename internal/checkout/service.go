package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/catalog"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/orders"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/payments"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/metrics"
)

type productResolver interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
}

type paymentVerifier interface {
	RetrieveStatus(ctx context.Context, reference string) (*payments.Confirmation, error)
}

// Service owns the checkout session lifecycle: transition validation, total
// computation and the single commit point at Complete.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Session, error)
	Complete(ctx context.Context, id string, input CompleteInput) (*Session, *orders.Order, error)
}

// ItemInput references a catalog product.
type ItemInput struct {
	ProductID string `json:"id"`
	Quantity  int64  `json:"quantity"`
}

// CreateInput starts a session from catalog selections.
type CreateInput struct {
	Items   []ItemInput `json:"items"`
	Buyer   *Buyer      `json:"buyer,omitempty"`
	Address *Address    `json:"fulfillment_address,omitempty"`
}

// UpdateInput mutates an open session. Buyer fields merge key-by-key; the
// address and the fulfillment option replace wholesale.
type UpdateInput struct {
	Buyer               *Buyer   `json:"buyer,omitempty"`
	Address             *Address `json:"fulfillment_address,omitempty"`
	FulfillmentOptionID *string  `json:"fulfillment_option_id,omitempty"`
}

// CompleteInput carries the client-confirmed payment for reconciliation.
type CompleteInput struct {
	PaymentReference  string `json:"payment_reference"`
	ConfirmedAmount   int64  `json:"confirmed_amount"`
	ConfirmedCurrency string `json:"confirmed_currency"`
}

type service struct {
	store      SessionStore
	ordersRepo orders.Store
	products   productResolver
	payments   paymentVerifier
	locks      *sessionLocks
	logg       *logger.Logger
	metrics    *metrics.CheckoutMetrics

	currency   string
	taxRateBps int64
}

// ServiceParams bundles the collaborators of the state machine.
type ServiceParams struct {
	Store      SessionStore
	Orders     orders.Store
	Products   productResolver
	Payments   paymentVerifier
	Logger     *logger.Logger
	Metrics    *metrics.CheckoutMetrics
	Currency   string
	TaxRateBps int64
}

// NewService builds the checkout state machine.
func NewService(p ServiceParams) (Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders store required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	if p.Payments == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if p.Currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	if p.TaxRateBps < 0 {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return &service{
		store:      p.Store,
		ordersRepo: p.Orders,
		products:   p.Products,
		payments:   p.Payments,
		locks:      newSessionLocks(),
		logg:       p.Logger,
		metrics:    p.Metrics,
		currency:   strings.ToLower(p.Currency),
		taxRateBps: p.TaxRateBps,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Session, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	items := make([]LineItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity for product %s must be positive", item.ProductID))
		}
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(product.Currency, s.currency) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is priced in %s, session currency is %s", product.ID, product.Currency, s.currency))
		}
		items = append(items, LineItem{
			ProductID:  product.ID,
			Quantity:   item.Quantity,
			BaseAmount: product.Price * item.Quantity,
			// Discounts are a fixed zero stub for now.
			Discount: 0,
		})
	}

	now := time.Now().UTC()
	session := &Session{
		ID:                 "cs_" + uuid.NewString(),
		Status:             StatusNotReadyForPayment,
		Currency:           s.currency,
		LineItems:          items,
		FulfillmentAddress: input.Address,
		FulfillmentOptions: ShippingOptions(),
		Buyer:              input.Buyer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	computeTotals(session, s.taxRateBps, 0)

	if err := s.store.Put(ctx, session); err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCheckoutID(ctx, session.ID), "checkout.session_created")
	}
	s.metrics.IncCreated()
	return session, nil
}

func (s *service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*Session, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == StatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is already completed")
	}
	if session.Status == StatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is canceled")
	}

	if input.Buyer != nil {
		session.Buyer = mergeBuyer(session.Buyer, input.Buyer)
	}
	if input.Address != nil {
		addr := *input.Address
		session.FulfillmentAddress = &addr
	}
	if input.FulfillmentOptionID != nil {
		session.FulfillmentOptionID = *input.FulfillmentOptionID
	}

	shipping, known := s.shippingAmount(session)
	if session.FulfillmentOptionID != "" && !known && s.logg != nil {
		// Permissive by policy: an unrecognized option ships for zero
		// rather than failing the update, so the agent can retry with a
		// valid id. See DESIGN.md.
		s.logg.Warn(s.logg.WithCheckoutID(ctx, session.ID),
			fmt.Sprintf("checkout.unknown_fulfillment_option %q", session.FulfillmentOptionID))
	}
	computeTotals(session, s.taxRateBps, shipping)

	if session.FulfillmentAddress != nil && known {
		session.Status = StatusReadyForPayment
	}
	session.UpdatedAt = time.Now().UTC()

	if err := s.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) Complete(ctx context.Context, id string, input CompleteInput) (*Session, *orders.Order, error) {
	if strings.TrimSpace(input.PaymentReference) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	switch session.Status {
	case StatusReadyForPayment:
	case StatusCompleted:
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is already completed")
	default:
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, notReadyMessage(session)).
			WithDetails(map[string]any{"status": session.Status})
	}

	conf, err := s.payments.RetrieveStatus(ctx, input.PaymentReference)
	if err != nil {
		return nil, nil, err
	}
	if conf.Status != payments.StatusSucceeded {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment %s is not confirmed (status %s)", input.PaymentReference, conf.Status))
	}

	total := session.TotalAmount()
	if input.ConfirmedAmount != total || conf.Amount != total {
		return nil, nil, pkgerrors.New(pkgerrors.CodeAmountMismatch,
			fmt.Sprintf("confirmed amount %d does not match checkout total %d", input.ConfirmedAmount, total)).
			WithDetails(map[string]any{"confirmed_amount": input.ConfirmedAmount, "provider_amount": conf.Amount, "checkout_total": total})
	}
	// The session currency is normalized to lowercase at construction, so
	// after normalizing the confirmed values the match is exact.
	confirmedCurrency := strings.ToLower(strings.TrimSpace(input.ConfirmedCurrency))
	if confirmedCurrency != session.Currency || strings.ToLower(conf.Currency) != session.Currency {
		return nil, nil, pkgerrors.New(pkgerrors.CodeCurrencyMismatch,
			fmt.Sprintf("confirmed currency %q does not match checkout currency %q", input.ConfirmedCurrency, session.Currency))
	}

	session.Status = StatusCompleted
	session.UpdatedAt = time.Now().UTC()

	order := &orders.Order{
		ID:               "ord_" + uuid.NewString(),
		CheckoutID:       session.ID,
		PaymentReference: input.PaymentReference,
		Status:           orders.StatusCompleted,
		TotalAmount:      total,
		Currency:         session.Currency,
		CreatedAt:        session.UpdatedAt,
	}

	// The order is written before the session flips to completed. If the
	// session write fails the stored session stays ready_for_payment and a
	// retry re-runs reconciliation, picking up the already-recorded order
	// instead of minting a second one.
	if err := s.ordersRepo.Put(ctx, order); err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeConflict {
			return nil, nil, err
		}
		existing, getErr := s.ordersRepo.GetByCheckoutID(ctx, session.ID)
		if getErr != nil {
			return nil, nil, getErr
		}
		order = existing
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCheckoutID(ctx, session.ID), "checkout.session_completed")
	}
	s.metrics.IncCompleted()
	return session, order, nil
}

// shippingAmount resolves the selected option against the session's static
// table. The second return reports whether the selection is a known id.
func (s *service) shippingAmount(session *Session) (int64, bool) {
	opt, known := knownOption(session)
	if !known {
		return 0, false
	}
	return opt.Amount, true
}

func mergeBuyer(current, update *Buyer) *Buyer {
	if current == nil {
		copied := *update
		return &copied
	}
	merged := *current
	if update.FirstName != "" {
		merged.FirstName = update.FirstName
	}
	if update.LastName != "" {
		merged.LastName = update.LastName
	}
	if update.Email != "" {
		merged.Email = update.Email
	}
	if update.Phone != "" {
		merged.Phone = update.Phone
	}
	return &merged
}

// notReadyMessage names the missing preconditions so the calling agent can
// issue corrective update_checkout calls.
func notReadyMessage(session *Session) string {
	var missing []string
	if session.FulfillmentAddress == nil {
		missing = append(missing, "a fulfillment address")
	}
	if _, known := knownOption(session); !known {
		missing = append(missing, "a fulfillment option")
	}
	if len(missing) == 0 {
		return "checkout session is not ready for payment"
	}
	return "checkout session is not ready for payment: set " + strings.Join(missing, " and ") + " first"
}

func knownOption(session *Session) (FulfillmentOption, bool) {
	for _, opt := range session.FulfillmentOptions {
		if opt.ID == session.FulfillmentOptionID && session.FulfillmentOptionID != "" {
			return opt, true
		}
	}
	return FulfillmentOption{}, false
}
