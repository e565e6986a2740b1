package models

import "time"

// CheckoutSessionRow is the keyed storage shape for a checkout session. The
// full session document is stored as JSON; status and currency are lifted out
// for inspection queries only.
type CheckoutSessionRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Status    string    `gorm:"size:32;not null"`
	Currency  string    `gorm:"size:8;not null"`
	Document  string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName overrides the default pluralization.
func (CheckoutSessionRow) TableName() string { return "checkout_sessions" }

// OrderRow persists the order created at checkout completion. The unique
// index on checkout_id backs the at-most-once completion guarantee at the
// storage layer as well.
type OrderRow struct {
	ID               string    `gorm:"primaryKey;size:64"`
	CheckoutID       string    `gorm:"size:64;uniqueIndex;not null"`
	PaymentReference string    `gorm:"size:128;not null"`
	Status           string    `gorm:"size:32;not null"`
	TotalAmount      int64     `gorm:"not null"`
	Currency         string    `gorm:"size:8;not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (OrderRow) TableName() string { return "orders" }
