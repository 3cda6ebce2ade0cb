// Package promotion defines the promotion discount instrument: a code
// restricted to an eligible subset of categories or products, with the
// discount computed over the matching line items only.
package promotion

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/promokit/discount-api/internal/domain/discount"
)

// Eligibility rejection reasons, in the order the checks run.
var (
	// ErrNotFound is returned when no promotion exists for a code.
	ErrNotFound = errors.New("promotion not found")
	// ErrInactive is returned when the promotion has been deactivated.
	ErrInactive = errors.New("promotion is not active")
	// ErrExpired is returned when the promotion is past its expiration date.
	ErrExpired = errors.New("promotion has expired")
	// ErrUsageLimitReached is returned when the promotion has exhausted its uses.
	ErrUsageLimitReached = errors.New("promotion usage limit exceeded")
	// ErrNoEligibleItems is returned when no order line item matches the
	// promotion's eligible products or categories.
	ErrNoEligibleItems = errors.New("no eligible items in order for this promotion")
)

// Promotion is a discount instrument scoped to eligible categories and
// products. Empty eligibility sets mean the promotion applies to the whole
// order.
type Promotion struct {
	ID                 string
	Code               string
	Discount           discount.Spec
	ExpiresAt          time.Time
	UsageLimit         int
	UsedCount          int
	EligibleCategories []string
	EligibleItems      []string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Item is an order line item as seen by promotion eligibility checks.
type Item struct {
	ProductID  string
	CategoryID string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Subtotal returns the sum of unit price times quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// Validate checks the promotion's own state at the given time: inactive,
// expired, usage exhausted, in that fixed order. Item eligibility is checked
// separately by EligibleSubtotal. Validate has no side effects.
func (p *Promotion) Validate(now time.Time) error {
	if !p.Active {
		return ErrInactive
	}
	if now.After(p.ExpiresAt) {
		return ErrExpired
	}
	if p.UsedCount >= p.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// EligibleSubtotal resolves the portion of the order the promotion may
// discount. With both eligibility sets empty it is the full order subtotal.
// Otherwise a line item counts when its product is in EligibleItems or its
// category is in EligibleCategories (union). Zero matching items is an
// ErrNoEligibleItems rejection.
func (p *Promotion) EligibleSubtotal(items []Item) (decimal.Decimal, error) {
	if len(p.EligibleCategories) == 0 && len(p.EligibleItems) == 0 {
		return Subtotal(items), nil
	}

	products := make(map[string]struct{}, len(p.EligibleItems))
	for _, id := range p.EligibleItems {
		products[id] = struct{}{}
	}
	categories := make(map[string]struct{}, len(p.EligibleCategories))
	for _, id := range p.EligibleCategories {
		categories[id] = struct{}{}
	}

	sum := decimal.Zero
	matched := false
	for _, item := range items {
		_, byProduct := products[item.ProductID]
		_, byCategory := categories[item.CategoryID]
		if !byProduct && !byCategory {
			continue
		}
		matched = true
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !matched {
		return decimal.Zero, ErrNoEligibleItems
	}
	return sum, nil
}

// Repository provides lookup and mutation of promotions.
// IncrementUsage must be an atomic read-modify-write so that two concurrent
// orders cannot both consume the last remaining use.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	FindByID(ctx context.Context, id string) (*Promotion, error)
	List(ctx context.Context, active *bool) ([]Promotion, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}

const (
	codePrefix  = "PRM-"
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLen     = 8
)

// GenerateCode produces a random promotion code of the form PRM-XXXXXXXX,
// used when a promotion is created without an explicit code.
func GenerateCode() string {
	buf := make([]byte, codeLen)
	for i := range buf {
		buf[i] = codeCharset[rand.IntN(len(codeCharset))]
	}
	return codePrefix + string(buf)
}
