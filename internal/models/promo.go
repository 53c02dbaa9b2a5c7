package models

import "time"

// PromoDiscountType is percentage or fixed.
type PromoDiscountType string

// Discount types for promo codes.
const (
	PromoDiscountPercentage PromoDiscountType = "PERCENTAGE"
	PromoDiscountFixed      PromoDiscountType = "FIXED"
)

// PromoCode is a discount rule applied at invoice-creation time.
// Value is a percentage (0-100) or a fixed amount in minor units.
type PromoCode struct {
	ID           string            `db:"id" json:"id"`
	Code         string            `db:"code" json:"code"`
	DiscountType PromoDiscountType `db:"discount_type" json:"discount_type"`
	Value        int64             `db:"value" json:"value"`
	MinAmount    int64             `db:"min_amount" json:"min_amount"`
	MaxUses      int               `db:"max_uses" json:"max_uses"`
	UsedCount    int               `db:"used_count" json:"used_count"`
	PerUserLimit int               `db:"per_user_limit" json:"per_user_limit"`
	ValidFrom    time.Time         `db:"valid_from" json:"valid_from"`
	ValidUntil   time.Time         `db:"valid_until" json:"valid_until"`
	Active       bool              `db:"active" json:"active"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// DiscountFor computes the discount for the given amount in minor units.
// Percentage discounts use integer division; the result never exceeds amount.
func (p PromoCode) DiscountFor(amount int64) int64 {
	var discount int64
	switch p.DiscountType {
	case PromoDiscountPercentage:
		discount = amount * p.Value / 100
	case PromoDiscountFixed:
		discount = p.Value
	}
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// PromoRedemption records one application of a promo code by a user.
type PromoRedemption struct {
	ID          string    `db:"id" json:"id"`
	PromoCodeID string    `db:"promo_code_id" json:"promo_code_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	InvoiceID   string    `db:"invoice_id" json:"invoice_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PromoCodeFilter provides filters for listing promo codes.
type PromoCodeFilter struct {
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
