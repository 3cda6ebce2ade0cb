package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/discount-api/internal/domain/discount"
	"github.com/promokit/discount-api/internal/domain/order"
	"github.com/promokit/discount-api/internal/domain/promotion"
	"github.com/promokit/discount-api/internal/domain/voucher"
)

// In-memory repositories backing the handler tests.

type memVoucherRepo struct {
	byID map[string]*voucher.Voucher
	seq  int
}

func newMemVoucherRepo() *memVoucherRepo {
	return &memVoucherRepo{byID: map[string]*voucher.Voucher{}}
}

func (m *memVoucherRepo) FindByCode(_ context.Context, code string) (*voucher.Voucher, error) {
	for _, v := range m.byID {
		if v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, voucher.ErrNotFound
}

func (m *memVoucherRepo) FindByID(_ context.Context, id string) (*voucher.Voucher, error) {
	v, ok := m.byID[id]
	if !ok {
		return nil, voucher.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVoucherRepo) List(_ context.Context, active *bool) ([]voucher.Voucher, error) {
	var out []voucher.Voucher
	for _, v := range m.byID {
		if active == nil || v.Active == *active {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memVoucherRepo) CodeExists(_ context.Context, code, excludeID string) (bool, error) {
	for id, v := range m.byID {
		if v.Code == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memVoucherRepo) Create(_ context.Context, v *voucher.Voucher) error {
	m.seq++
	v.ID = "v" + string(rune('0'+m.seq))
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memVoucherRepo) Update(_ context.Context, v *voucher.Voucher) error {
	if _, ok := m.byID[v.ID]; !ok {
		return voucher.ErrNotFound
	}
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memVoucherRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return voucher.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memVoucherRepo) IncrementUsage(_ context.Context, id string) error {
	v, ok := m.byID[id]
	if !ok {
		return voucher.ErrNotFound
	}
	v.UsedCount++
	return nil
}

type memPromotionRepo struct {
	byID map[string]*promotion.Promotion
	seq  int
}

func newMemPromotionRepo() *memPromotionRepo {
	return &memPromotionRepo{byID: map[string]*promotion.Promotion{}}
}

func (m *memPromotionRepo) FindByCode(_ context.Context, code string) (*promotion.Promotion, error) {
	for _, p := range m.byID {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, promotion.ErrNotFound
}

func (m *memPromotionRepo) FindByID(_ context.Context, id string) (*promotion.Promotion, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, promotion.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPromotionRepo) List(_ context.Context, active *bool) ([]promotion.Promotion, error) {
	var out []promotion.Promotion
	for _, p := range m.byID {
		if active == nil || p.Active == *active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPromotionRepo) CodeExists(_ context.Context, code, excludeID string) (bool, error) {
	for id, p := range m.byID {
		if p.Code == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPromotionRepo) Create(_ context.Context, p *promotion.Promotion) error {
	m.seq++
	p.ID = "p" + string(rune('0'+m.seq))
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPromotionRepo) Update(_ context.Context, p *promotion.Promotion) error {
	if _, ok := m.byID[p.ID]; !ok {
		return promotion.ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPromotionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return promotion.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memPromotionRepo) IncrementUsage(_ context.Context, id string) error {
	p, ok := m.byID[id]
	if !ok {
		return promotion.ErrNotFound
	}
	p.UsedCount++
	return nil
}

type memOrderRepo struct {
	byID map[string]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{byID: map[string]*order.Order{}}
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	o.CreatedAt = time.Now()
	m.byID[o.ID] = o
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *memOrderRepo) FindByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) FindAll(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

type testEnv struct {
	handler    http.Handler
	vouchers   *memVoucherRepo
	promotions *memPromotionRepo
	orders     *memOrderRepo
}

func newTestEnv() *testEnv {
	vouchers := newMemVoucherRepo()
	promotions := newMemPromotionRepo()
	orders := newMemOrderRepo()
	svc := order.NewService(vouchers, promotions, orders, discount.NewCap(0.5))
	return &testEnv{
		handler:    New(svc, vouchers, promotions).Routes(),
		vouchers:   vouchers,
		promotions: promotions,
		orders:     orders,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func futureDate() time.Time {
	return time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
}

func TestApplyDiscountEndpoint(t *testing.T) {
	env := newTestEnv()
	env.vouchers.byID["v1"] = &voucher.Voucher{
		ID:         "v1",
		Code:       "TEN",
		Discount:   discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(10)},
		ExpiresAt:  futureDate(),
		UsageLimit: 5,
		Active:     true,
	}

	rec := env.do(t, http.MethodPost, "/orders/apply-discount", map[string]any{
		"userId": "user-1",
		"items": []map[string]any{
			{"productId": "prod-1", "category": "cat-1", "price": 100, "quantity": 2},
		},
		"voucherCode": "TEN",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, "user-1", resp.UserID)
	assert.InDelta(t, 200, resp.TotalAmount, 0.001)
	assert.InDelta(t, 20, resp.DiscountApplied, 0.001)
	assert.InDelta(t, 180, resp.FinalAmount, 0.001)
	require.NotNil(t, resp.AppliedVoucher)
	assert.Equal(t, "TEN", resp.AppliedVoucher.Code)
	assert.Equal(t, 1, env.vouchers.byID["v1"].UsedCount)
}

func TestApplyDiscountEndpoint_InputErrors(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty items", map[string]any{"userId": "u1", "items": []map[string]any{}}},
		{"missing user", map[string]any{"items": []map[string]any{
			{"productId": "p", "category": "c", "price": 1, "quantity": 1},
		}}},
		{"zero quantity", map[string]any{"userId": "u1", "items": []map[string]any{
			{"productId": "p", "category": "c", "price": 1, "quantity": 0},
		}}},
		{"duplicate promotions", map[string]any{
			"userId": "u1",
			"items": []map[string]any{
				{"productId": "p", "category": "c", "price": 1, "quantity": 1},
			},
			"promotionCodes": []string{"X", "X"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/orders/apply-discount", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeBody[errorResponse](t, rec)
			assert.Equal(t, "invalid_input", resp.Code)
		})
	}
}

func TestApplyDiscountEndpoint_RejectedVoucher(t *testing.T) {
	env := newTestEnv()
	env.vouchers.byID["v1"] = &voucher.Voucher{
		ID:         "v1",
		Code:       "OLD",
		Discount:   discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(10)},
		ExpiresAt:  time.Now().Add(-time.Hour),
		UsageLimit: 5,
		Active:     true,
	}

	rec := env.do(t, http.MethodPost, "/orders/apply-discount", map[string]any{
		"userId": "u1",
		"items": []map[string]any{
			{"productId": "p", "category": "c", "price": 100, "quantity": 1},
		},
		"voucherCode": "OLD",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "discount_rejected", resp.Code)
	assert.Contains(t, resp.Message, "OLD")
	assert.Contains(t, resp.Message, "expired")
}

func TestApplyDiscountEndpoint_UnknownPromotion(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/orders/apply-discount", map[string]any{
		"userId": "u1",
		"items": []map[string]any{
			{"productId": "p", "category": "c", "price": 100, "quantity": 1},
		},
		"promotionCodes": []string{"NOPE"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, env.orders.byID)
}

func TestGetOrderEndpoints(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/orders/apply-discount", map[string]any{
		"userId": "u1",
		"items": []map[string]any{
			{"productId": "p", "category": "c", "price": 50, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[orderResponse](t, rec)

	rec = env.do(t, http.MethodGet, "/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/orders/user/u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]orderResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = env.do(t, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateVoucherEndpoint(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/vouchers/", map[string]any{
		"discountType":   "Percentage",
		"discountValue":  15,
		"expirationDate": futureDate(),
		"usageLimit":     10,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[voucherResponse](t, rec)
	assert.Equal(t, "percentage", resp.DiscountType)
	assert.True(t, strings.HasPrefix(resp.Code, "VCH-"), "auto-generated code, got %q", resp.Code)
	assert.True(t, resp.IsActive)
	assert.Zero(t, resp.UsedCount)
}

func TestCreateVoucherEndpoint_Validation(t *testing.T) {
	env := newTestEnv()
	env.vouchers.byID["v1"] = &voucher.Voucher{ID: "v1", Code: "TAKEN"}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad type", map[string]any{
			"discountType": "bogus", "discountValue": 10,
			"expirationDate": futureDate(), "usageLimit": 1,
		}},
		{"percentage over 100", map[string]any{
			"discountType": "percentage", "discountValue": 120,
			"expirationDate": futureDate(), "usageLimit": 1,
		}},
		{"past expiration", map[string]any{
			"discountType": "fixed", "discountValue": 10,
			"expirationDate": time.Now().Add(-time.Hour), "usageLimit": 1,
		}},
		{"short code", map[string]any{
			"discountType": "fixed", "discountValue": 10,
			"expirationDate": futureDate(), "usageLimit": 1, "code": "ab",
		}},
		{"duplicate code", map[string]any{
			"discountType": "fixed", "discountValue": 10,
			"expirationDate": futureDate(), "usageLimit": 1, "code": "TAKEN",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/vouchers/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListVouchersEndpoint_ActiveFilter(t *testing.T) {
	env := newTestEnv()
	env.vouchers.byID["v1"] = &voucher.Voucher{ID: "v1", Code: "ON", Active: true}
	env.vouchers.byID["v2"] = &voucher.Voucher{ID: "v2", Code: "OFF", Active: false}

	rec := env.do(t, http.MethodGet, "/vouchers/?isActive=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]voucherResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "ON", list[0].Code)

	rec = env.do(t, http.MethodGet, "/vouchers/?isActive=banana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateVoucherEndpoint(t *testing.T) {
	env := newTestEnv()
	env.vouchers.byID["v1"] = &voucher.Voucher{
		ID:         "v1",
		Code:       "TEN",
		Discount:   discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(10)},
		ExpiresAt:  futureDate(),
		UsageLimit: 5,
		Active:     true,
	}

	rec := env.do(t, http.MethodPut, "/vouchers/v1", map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[voucherResponse](t, rec)
	assert.False(t, resp.IsActive)

	rec = env.do(t, http.MethodPut, "/vouchers/v1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty update must be rejected")

	rec = env.do(t, http.MethodPut, "/vouchers/v1", map[string]any{"discountValue": 150})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "percentage above 100 must be rejected")

	rec = env.do(t, http.MethodPut, "/vouchers/missing", map[string]any{"isActive": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteVoucherEndpoint(t *testing.T) {
	env := newTestEnv()
	env.vouchers.byID["v1"] = &voucher.Voucher{ID: "v1", Code: "TEN"}

	rec := env.do(t, http.MethodDelete, "/vouchers/v1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/vouchers/v1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePromotionEndpoint(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/promotions/", map[string]any{
		"discountType":       "fixed",
		"discountValue":      5,
		"expirationDate":     futureDate(),
		"usageLimit":         3,
		"eligibleCategories": []string{"cat-1"},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[promotionResponse](t, rec)
	assert.True(t, strings.HasPrefix(resp.Code, "PRM-"))
	assert.Equal(t, []string{"cat-1"}, resp.EligibleCategories)
	assert.Empty(t, resp.EligibleItems)
}

func TestPromotionAppliesOnlyToEligibleItems(t *testing.T) {
	env := newTestEnv()
	env.promotions.byID["p1"] = &promotion.Promotion{
		ID:                 "p1",
		Code:               "CAT10",
		Discount:           discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(10)},
		ExpiresAt:          futureDate(),
		UsageLimit:         5,
		EligibleCategories: []string{"books"},
		Active:             true,
	}

	rec := env.do(t, http.MethodPost, "/orders/apply-discount", map[string]any{
		"userId": "u1",
		"items": []map[string]any{
			{"productId": "p1", "category": "books", "price": 40, "quantity": 1},
			{"productId": "p2", "category": "games", "price": 60, "quantity": 1},
		},
		"promotionCodes": []string{"CAT10"},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[orderResponse](t, rec)
	assert.InDelta(t, 4, resp.DiscountApplied, 0.001)
	assert.InDelta(t, 96, resp.FinalAmount, 0.001)
}
