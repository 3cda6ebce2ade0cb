package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/promokit/discount-api/internal/domain/promotion"
)

type createPromotionRequest struct {
	Code               string          `json:"code"`
	DiscountType       string          `json:"discountType"`
	DiscountValue      decimal.Decimal `json:"discountValue"`
	ExpirationDate     time.Time       `json:"expirationDate"`
	UsageLimit         int             `json:"usageLimit"`
	EligibleCategories []string        `json:"eligibleCategories"`
	EligibleItems      []string        `json:"eligibleItems"`
	IsActive           *bool           `json:"isActive"`
}

type updatePromotionRequest struct {
	Code               *string          `json:"code"`
	DiscountType       *string          `json:"discountType"`
	DiscountValue      *decimal.Decimal `json:"discountValue"`
	ExpirationDate     *time.Time       `json:"expirationDate"`
	UsageLimit         *int             `json:"usageLimit"`
	EligibleCategories *[]string        `json:"eligibleCategories"`
	EligibleItems      *[]string        `json:"eligibleItems"`
	IsActive           *bool            `json:"isActive"`
}

type promotionResponse struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	DiscountType       string    `json:"discountType"`
	DiscountValue      float64   `json:"discountValue"`
	ExpirationDate     time.Time `json:"expirationDate"`
	UsageLimit         int       `json:"usageLimit"`
	UsedCount          int       `json:"usedCount"`
	EligibleCategories []string  `json:"eligibleCategories"`
	EligibleItems      []string  `json:"eligibleItems"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toPromotionResponse(p *promotion.Promotion) promotionResponse {
	return promotionResponse{
		ID:                 p.ID,
		Code:               p.Code,
		DiscountType:       string(p.Discount.Type),
		DiscountValue:      p.Discount.Value.InexactFloat64(),
		ExpirationDate:     p.ExpiresAt,
		UsageLimit:         p.UsageLimit,
		UsedCount:          p.UsedCount,
		EligibleCategories: p.EligibleCategories,
		EligibleItems:      p.EligibleItems,
		IsActive:           p.Active,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
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

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = promotion.GenerateCode()
	} else if code, msg = validateCode(code); msg != "" {
		badRequest(w, msg)
		return
	}

	exists, err := h.promotions.CodeExists(r.Context(), code, "")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if exists {
		badRequest(w, "promotion code is already in use")
		return
	}

	p := &promotion.Promotion{
		Code:               code,
		Discount:           spec,
		ExpiresAt:          req.ExpirationDate,
		UsageLimit:         req.UsageLimit,
		EligibleCategories: req.EligibleCategories,
		EligibleItems:      req.EligibleItems,
		Active:             true,
	}
	if p.EligibleCategories == nil {
		p.EligibleCategories = []string{}
	}
	if p.EligibleItems == nil {
		p.EligibleItems = []string{}
	}
	if req.IsActive != nil {
		p.Active = *req.IsActive
	}
	if err := h.promotions.Create(r.Context(), p); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromotionResponse(p))
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	active, msg := parseActiveFilter(r)
	if msg != "" {
		badRequest(w, msg)
		return
	}
	list, err := h.promotions.List(r.Context(), active)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	resp := make([]promotionResponse, len(list))
	for i := range list {
		resp[i] = toPromotionResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promotions.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	var req updatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Code == nil && req.DiscountType == nil && req.DiscountValue == nil &&
		req.ExpirationDate == nil && req.UsageLimit == nil &&
		req.EligibleCategories == nil && req.EligibleItems == nil && req.IsActive == nil {
		badRequest(w, "at least one field must be provided")
		return
	}

	p, err := h.promotions.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if req.DiscountType != nil || req.DiscountValue != nil {
		rawType := string(p.Discount.Type)
		if req.DiscountType != nil {
			rawType = *req.DiscountType
		}
		value := p.Discount.Value
		if req.DiscountValue != nil {
			value = *req.DiscountValue
		}
		spec, msg := validateDiscountSpec(rawType, value)
		if msg != "" {
			badRequest(w, msg)
			return
		}
		p.Discount = spec
	}
	if req.Code != nil {
		code, msg := validateCode(*req.Code)
		if msg != "" {
			badRequest(w, msg)
			return
		}
		exists, err := h.promotions.CodeExists(r.Context(), code, p.ID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if exists {
			badRequest(w, "promotion code is already in use")
			return
		}
		p.Code = code
	}
	if req.ExpirationDate != nil {
		p.ExpiresAt = *req.ExpirationDate
	}
	if req.UsageLimit != nil {
		if *req.UsageLimit < 1 {
			badRequest(w, "usageLimit must be a positive integer")
			return
		}
		p.UsageLimit = *req.UsageLimit
	}
	if req.EligibleCategories != nil {
		p.EligibleCategories = *req.EligibleCategories
	}
	if req.EligibleItems != nil {
		p.EligibleItems = *req.EligibleItems
	}
	if req.IsActive != nil {
		p.Active = *req.IsActive
	}

	if err := h.promotions.Update(r.Context(), p); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

func (h *Handler) deletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promotions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
