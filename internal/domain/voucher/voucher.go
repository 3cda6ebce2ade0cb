// Package voucher defines the voucher discount instrument: a single-use-limited
// code applied at the whole-order level and gated by a minimum order value.
package voucher

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
	// ErrNotFound is returned when no voucher exists for a code.
	ErrNotFound = errors.New("voucher not found")
	// ErrInactive is returned when the voucher has been deactivated.
	ErrInactive = errors.New("voucher is not active")
	// ErrExpired is returned when the voucher is past its expiration date.
	ErrExpired = errors.New("voucher has expired")
	// ErrUsageLimitReached is returned when the voucher has exhausted its uses.
	ErrUsageLimitReached = errors.New("voucher usage limit exceeded")
	// ErrBelowMinimumOrder is returned when the order subtotal does not meet
	// the voucher's minimum order value.
	ErrBelowMinimumOrder = errors.New("minimum order value not met")
)

// Voucher is a discount instrument applied to the full order subtotal.
type Voucher struct {
	ID            string
	Code          string
	Discount      discount.Spec
	ExpiresAt     time.Time
	UsageLimit    int
	UsedCount     int
	MinOrderValue decimal.Decimal
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the voucher against the order subtotal at the given time.
// Checks run in a fixed order: inactive, expired, usage exhausted, below
// minimum order value. The first failing check determines the returned error;
// a nil result means the voucher may be applied. Validate has no side effects.
func (v *Voucher) Validate(subtotal decimal.Decimal, now time.Time) error {
	if !v.Active {
		return ErrInactive
	}
	if now.After(v.ExpiresAt) {
		return ErrExpired
	}
	if v.UsedCount >= v.UsageLimit {
		return ErrUsageLimitReached
	}
	if subtotal.LessThan(v.MinOrderValue) {
		return ErrBelowMinimumOrder
	}
	return nil
}

// Repository provides lookup and mutation of vouchers.
// IncrementUsage must be an atomic read-modify-write so that two concurrent
// orders cannot both consume the last remaining use.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Voucher, error)
	FindByID(ctx context.Context, id string) (*Voucher, error)
	List(ctx context.Context, active *bool) ([]Voucher, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, v *Voucher) error
	Update(ctx context.Context, v *Voucher) error
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}

const (
	codePrefix  = "VCH-"
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLen     = 8
)

// GenerateCode produces a random voucher code of the form VCH-XXXXXXXX,
// used when a voucher is created without an explicit code.
func GenerateCode() string {
	buf := make([]byte, codeLen)
	for i := range buf {
		buf[i] = codeCharset[rand.IntN(len(codeCharset))]
	}
	return codePrefix + string(buf)
}
