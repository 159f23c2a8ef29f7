package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus represents the gifting state of an item
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusReserved  ItemStatus = "reserved"
	ItemStatusPurchased ItemStatus = "purchased"
)

// ParseItemStatus converts s into an ItemStatus, rejecting unknown values
func ParseItemStatus(s string) (ItemStatus, error) {
	st := ItemStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown item status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusReserved, ItemStatusPurchased:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner
func (s *ItemStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ItemStatus", src)
	}
	st, err := ParseItemStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Value implements driver.Valuer
func (s ItemStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown item status %q", string(s))
	}
	return string(s), nil
}

// Item is a single gift on a wishlist
type Item struct {
	ID           string              `json:"id" db:"id"`
	WishlistID   string              `json:"wishlist_id" db:"wishlist_id"`
	Title        string              `json:"title" db:"title"`
	Description  *string             `json:"description" db:"description"`
	Price        decimal.NullDecimal `json:"price" db:"price"`
	ProductURL   *string             `json:"product_url" db:"product_url"`
	AffiliateURL *string             `json:"affiliate_url" db:"affiliate_url"`
	ImageURL     *string             `json:"image_url" db:"image_url"`
	Status       ItemStatus          `json:"status" db:"status"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`
}

// IsReserved returns true if someone has claimed the item
func (i *Item) IsReserved() bool {
	return i.Status == ItemStatusReserved
}

// ItemUpdate lists mutable item fields. Nil fields are left untouched.
type ItemUpdate struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	ProductURL   *string          `json:"product_url"`
	AffiliateURL *string          `json:"affiliate_url"`
	ImageURL     *string          `json:"image_url"`
	Status       *ItemStatus      `json:"status"`
}
