// Package order defines the order record and the discount application
// service that builds it.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for request validation, detected before any external read.
var (
	ErrNotFound            = errors.New("order not found")
	ErrEmptyItems          = errors.New("order must contain at least one item")
	ErrNonPositiveTotal    = errors.New("order total must be greater than zero")
	ErrCodeCollision       = errors.New("the same code cannot be used as both a voucher and a promotion")
	ErrDuplicatePromotions = errors.New("duplicate promotion codes are not allowed")
)

// InstrumentError reports why a specific voucher or promotion code was
// rejected. Reason is one of the eligibility sentinels from the voucher or
// promotion package.
type InstrumentError struct {
	Kind   string // "voucher" or "promotion"
	Code   string
	Reason error
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Code, e.Reason)
}

func (e *InstrumentError) Unwrap() error {
	return e.Reason
}

// LineItem is a single order position. Items keep their request order.
type LineItem struct {
	ProductID  string          `json:"productId"`
	CategoryID string          `json:"categoryId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
}

// AppliedVoucher records the voucher consumed by an order and its share of
// the discount after capping.
type AppliedVoucher struct {
	VoucherID      string          `json:"voucherId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// AppliedPromotion records one consumed promotion and its discount share.
type AppliedPromotion struct {
	PromotionID    string          `json:"promotionId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// Order is the persisted result of a successful discount application.
// FinalAmount is always TotalAmount minus DiscountApplied. AppliedPromotions
// keeps the request order of the promotion codes.
type Order struct {
	ID                string
	UserID            string
	Items             []LineItem
	TotalAmount       decimal.Decimal
	DiscountApplied   decimal.Decimal
	FinalAmount       decimal.Decimal
	AppliedVoucher    *AppliedVoucher
	AppliedPromotions []AppliedPromotion
	CreatedAt         time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByUser(ctx context.Context, userID string) ([]Order, error)
	FindAll(ctx context.Context) ([]Order, error)
}
