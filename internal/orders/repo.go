package orders

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/db"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/db/models"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

// Repository is the durable Store backed by the shared GORM connection.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to order persistence.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Put(ctx context.Context, order *Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	row := models.OrderRow{
		ID:               order.ID,
		CheckoutID:       order.CheckoutID,
		PaymentReference: order.PaymentReference,
		Status:           order.Status,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		CreatedAt:        order.CreatedAt,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already exists for checkout session")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order")
	}
	return nil
}

func (r *Repository) GetByCheckoutID(ctx context.Context, checkoutID string) (*Order, error) {
	var row models.OrderRow
	err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return fromRow(row), nil
}

func (r *Repository) List(ctx context.Context) ([]Order, error) {
	var rows []models.OrderRow
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, *fromRow(row))
	}
	return out, nil
}

func fromRow(row models.OrderRow) *Order {
	return &Order{
		ID:               row.ID,
		CheckoutID:       row.CheckoutID,
		PaymentReference: row.PaymentReference,
		Status:           row.Status,
		TotalAmount:      row.TotalAmount,
		Currency:         row.Currency,
		CreatedAt:        row.CreatedAt,
	}
}
