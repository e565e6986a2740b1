package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/db/models"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

// Repository is the durable SessionStore backed by the shared GORM
// connection. The session document is stored whole as JSON; lifted columns
// exist for inspection only and are never read back into the record.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to session persistence.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, id string) (*Session, error) {
	var row models.CheckoutSessionRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("checkout session %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading checkout session")
	}

	var session Session
	if err := json.Unmarshal([]byte(row.Document), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding checkout session document")
	}
	return &session, nil
}

func (r *Repository) Put(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session with id is required")
	}

	doc, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding checkout session document")
	}

	row := models.CheckoutSessionRow{
		ID:        session.ID,
		Status:    string(session.Status),
		Currency:  session.Currency,
		Document:  string(doc),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting checkout session")
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]Session, error) {
	var rows []models.CheckoutSessionRow
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing checkout sessions")
	}

	out := make([]Session, 0, len(rows))
	for _, row := range rows {
		var session Session
		if err := json.Unmarshal([]byte(row.Document), &session); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding checkout session document")
		}
		out = append(out, session)
	}
	return out, nil
}
