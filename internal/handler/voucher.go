package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/promokit/discount-api/internal/domain/discount"
	"github.com/promokit/discount-api/internal/domain/voucher"
)

type createVoucherRequest struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	ExpirationDate time.Time       `json:"expirationDate"`
	UsageLimit     int             `json:"usageLimit"`
	MinOrderValue  decimal.Decimal `json:"minOrderValue"`
	IsActive       *bool           `json:"isActive"`
}

type updateVoucherRequest struct {
	Code           *string          `json:"code"`
	DiscountType   *string          `json:"discountType"`
	DiscountValue  *decimal.Decimal `json:"discountValue"`
	ExpirationDate *time.Time       `json:"expirationDate"`
	UsageLimit     *int             `json:"usageLimit"`
	MinOrderValue  *decimal.Decimal `json:"minOrderValue"`
	IsActive       *bool            `json:"isActive"`
}

type voucherResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	DiscountType   string    `json:"discountType"`
	DiscountValue  float64   `json:"discountValue"`
	ExpirationDate time.Time `json:"expirationDate"`
	UsageLimit     int       `json:"usageLimit"`
	UsedCount      int       `json:"usedCount"`
	MinOrderValue  float64   `json:"minOrderValue"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toVoucherResponse(v *voucher.Voucher) voucherResponse {
	return voucherResponse{
		ID:             v.ID,
		Code:           v.Code,
		DiscountType:   string(v.Discount.Type),
		DiscountValue:  v.Discount.Value.InexactFloat64(),
		ExpirationDate: v.ExpiresAt,
		UsageLimit:     v.UsageLimit,
		UsedCount:      v.UsedCount,
		MinOrderValue:  v.MinOrderValue.InexactFloat64(),
		IsActive:       v.Active,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}

// validateDiscountSpec normalizes and checks a discount type/value pair:
// type is case-insensitive, value must be positive, percentages cannot
// exceed 100.
func validateDiscountSpec(rawType string, value decimal.Decimal) (discount.Spec, string) {
	t := discount.Type(strings.ToLower(strings.TrimSpace(rawType)))
	if !t.Valid() {
		return discount.Spec{}, `discountType must be either "percentage" or "fixed"`
	}
	if !value.IsPositive() {
		return discount.Spec{}, "discountValue must be a positive number"
	}
	if t == discount.TypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return discount.Spec{}, "percentage discount cannot exceed 100"
	}
	return discount.Spec{Type: t, Value: value}, ""
}

func validateCode(code string) (string, string) {
	code = strings.TrimSpace(code)
	if len(code) < 3 || len(code) > 50 {
		return "", "code must be between 3 and 50 characters"
	}
	return code, ""
}

// parseActiveFilter reads the optional ?isActive= query parameter.
func parseActiveFilter(r *http.Request) (*bool, string) {
	raw := r.URL.Query().Get("isActive")
	if raw == "" {
		return nil, ""
	}
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, "isActive must be true or false"
	}
	return &active, ""
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	spec, msg := validateDiscountSpec(req.DiscountType, req.DiscountValue)
	if msg != "" {
		badRequest(w, msg)
		return
	}
	if req.ExpirationDate.IsZero() || !req.ExpirationDate.After(time.Now()) {
		badRequest(w, "expirationDate must be in the future")
		return
	}
	if req.UsageLimit < 1 {
		badRequest(w, "usageLimit must be a positive integer")
		return
	}
	if req.MinOrderValue.IsNegative() {
		badRequest(w, "minOrderValue must not be negative")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = voucher.GenerateCode()
	} else if code, msg = validateCode(code); msg != "" {
		badRequest(w, msg)
		return
	}

	exists, err := h.vouchers.CodeExists(r.Context(), code, "")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if exists {
		badRequest(w, "voucher code is already in use")
		return
	}

	v := &voucher.Voucher{
		Code:          code,
		Discount:      spec,
		ExpiresAt:     req.ExpirationDate,
		UsageLimit:    req.UsageLimit,
		MinOrderValue: req.MinOrderValue,
		Active:        true,
	}
	if req.IsActive != nil {
		v.Active = *req.IsActive
	}
	if err := h.vouchers.Create(r.Context(), v); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherResponse(v))
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	active, msg := parseActiveFilter(r)
	if msg != "" {
		badRequest(w, msg)
		return
	}
	list, err := h.vouchers.List(r.Context(), active)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	resp := make([]voucherResponse, len(list))
	for i := range list {
		resp[i] = toVoucherResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.vouchers.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

func (h *Handler) updateVoucher(w http.ResponseWriter, r *http.Request) {
	var req updateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Code == nil && req.DiscountType == nil && req.DiscountValue == nil &&
		req.ExpirationDate == nil && req.UsageLimit == nil &&
		req.MinOrderValue == nil && req.IsActive == nil {
		badRequest(w, "at least one field must be provided")
		return
	}

	v, err := h.vouchers.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if req.DiscountType != nil || req.DiscountValue != nil {
		rawType := string(v.Discount.Type)
		if req.DiscountType != nil {
			rawType = *req.DiscountType
		}
		value := v.Discount.Value
		if req.DiscountValue != nil {
			value = *req.DiscountValue
		}
		spec, msg := validateDiscountSpec(rawType, value)
		if msg != "" {
			badRequest(w, msg)
			return
		}
		v.Discount = spec
	}
	if req.Code != nil {
		code, msg := validateCode(*req.Code)
		if msg != "" {
			badRequest(w, msg)
			return
		}
		exists, err := h.vouchers.CodeExists(r.Context(), code, v.ID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if exists {
			badRequest(w, "voucher code is already in use")
			return
		}
		v.Code = code
	}
	if req.ExpirationDate != nil {
		v.ExpiresAt = *req.ExpirationDate
	}
	if req.UsageLimit != nil {
		if *req.UsageLimit < 1 {
			badRequest(w, "usageLimit must be a positive integer")
			return
		}
		v.UsageLimit = *req.UsageLimit
	}
	if req.MinOrderValue != nil {
		if req.MinOrderValue.IsNegative() {
			badRequest(w, "minOrderValue must not be negative")
			return
		}
		v.MinOrderValue = *req.MinOrderValue
	}
	if req.IsActive != nil {
		v.Active = *req.IsActive
	}

	if err := h.vouchers.Update(r.Context(), v); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

func (h *Handler) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	if err := h.vouchers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
