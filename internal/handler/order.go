package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/promokit/discount-api/internal/domain/order"
)

type orderItemDTO struct {
	ProductID string          `json:"productId"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type applyDiscountRequest struct {
	UserID         string         `json:"userId"`
	Items          []orderItemDTO `json:"items"`
	VoucherCode    string         `json:"voucherCode"`
	PromotionCodes []string       `json:"promotionCodes"`
}

type appliedVoucherDTO struct {
	VoucherID      string  `json:"voucherId"`
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discountAmount"`
}

type appliedPromotionDTO struct {
	PromotionID    string  `json:"promotionId"`
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discountAmount"`
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type orderResponse struct {
	ID                string                `json:"id"`
	UserID            string                `json:"userId"`
	Items             []orderItemResponse   `json:"items"`
	TotalAmount       float64               `json:"totalAmount"`
	DiscountApplied   float64               `json:"discountApplied"`
	FinalAmount       float64               `json:"finalAmount"`
	AppliedVoucher    *appliedVoucherDTO    `json:"appliedVoucher,omitempty"`
	AppliedPromotions []appliedPromotionDTO `json:"appliedPromotions"`
	CreatedAt         time.Time             `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Category:  item.CategoryID,
			Price:     item.UnitPrice.InexactFloat64(),
			Quantity:  item.Quantity,
		}
	}
	promos := make([]appliedPromotionDTO, len(o.AppliedPromotions))
	for i, p := range o.AppliedPromotions {
		promos[i] = appliedPromotionDTO{
			PromotionID:    p.PromotionID,
			Code:           p.Code,
			DiscountAmount: p.DiscountAmount.InexactFloat64(),
		}
	}
	resp := orderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		Items:             items,
		TotalAmount:       o.TotalAmount.InexactFloat64(),
		DiscountApplied:   o.DiscountApplied.InexactFloat64(),
		FinalAmount:       o.FinalAmount.InexactFloat64(),
		AppliedPromotions: promos,
		CreatedAt:         o.CreatedAt,
	}
	if o.AppliedVoucher != nil {
		resp.AppliedVoucher = &appliedVoucherDTO{
			VoucherID:      o.AppliedVoucher.VoucherID,
			Code:           o.AppliedVoucher.Code,
			DiscountAmount: o.AppliedVoucher.DiscountAmount.InexactFloat64(),
		}
	}
	return resp
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	var req applyDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "userId is required")
		return
	}
	items := make([]order.LineItem, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == "" || item.Category == "" {
			badRequest(w, "every item needs a productId and a category")
			return
		}
		if item.Price.IsNegative() {
			badRequest(w, "item price must not be negative")
			return
		}
		if item.Quantity < 1 {
			badRequest(w, "item quantity must be at least 1")
			return
		}
		items[i] = order.LineItem{
			ProductID:  item.ProductID,
			CategoryID: item.Category,
			UnitPrice:  item.Price,
			Quantity:   item.Quantity,
		}
	}

	o, err := h.orders.ApplyDiscounts(r.Context(), order.ApplyDiscountsRequest{
		UserID:         req.UserID,
		Items:          items,
		VoucherCode:    req.VoucherCode,
		PromotionCodes: req.PromotionCodes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.GetAll(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	resp := make([]orderResponse, len(list))
	for i := range list {
		resp[i] = toOrderResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	list, err := h.orders.GetByUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	resp := make([]orderResponse, len(list))
	for i := range list {
		resp[i] = toOrderResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
