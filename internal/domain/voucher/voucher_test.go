package voucher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/discount-api/internal/domain/discount"
)

func TestVoucherValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := Voucher{
		ID:            "v1",
		Code:          "WELCOME20",
		Discount:      discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(20)},
		ExpiresAt:     now.Add(24 * time.Hour),
		UsageLimit:    100,
		UsedCount:     10,
		MinOrderValue: decimal.NewFromInt(50),
		Active:        true,
	}

	tests := []struct {
		name     string
		mutate   func(v *Voucher)
		subtotal decimal.Decimal
		wantErr  error
	}{
		{
			name:     "valid voucher passes",
			mutate:   func(*Voucher) {},
			subtotal: decimal.NewFromInt(100),
		},
		{
			name:     "inactive",
			mutate:   func(v *Voucher) { v.Active = false },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrInactive,
		},
		{
			name:     "expired",
			mutate:   func(v *Voucher) { v.ExpiresAt = now.Add(-time.Hour) },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrExpired,
		},
		{
			name:     "usage limit reached",
			mutate:   func(v *Voucher) { v.UsedCount = v.UsageLimit },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrUsageLimitReached,
		},
		{
			name:     "below minimum order value",
			mutate:   func(v *Voucher) { v.MinOrderValue = decimal.NewFromInt(200) },
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrBelowMinimumOrder,
		},
		{
			name:     "subtotal exactly at minimum passes",
			mutate:   func(*Voucher) {},
			subtotal: decimal.NewFromInt(50),
		},
		{
			// Inactive wins over expired: checks run in a fixed order.
			name: "inactive reported before expired",
			mutate: func(v *Voucher) {
				v.Active = false
				v.ExpiresAt = now.Add(-time.Hour)
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrInactive,
		},
		{
			name: "expired reported before usage limit",
			mutate: func(v *Voucher) {
				v.ExpiresAt = now.Add(-time.Hour)
				v.UsedCount = v.UsageLimit
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			tt.mutate(&v)

			err := v.Validate(tt.subtotal, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		code := GenerateCode()
		assert.Len(t, code, len("VCH-")+8)
		assert.Equal(t, "VCH-", code[:4])
		seen[code] = struct{}{}
	}
	// 36^8 possibilities; 100 draws should not collide.
	assert.Len(t, seen, 100)
}
