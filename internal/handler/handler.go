// Package handler exposes the discount engine and instrument management over
// HTTP. Handlers decode requests, call the domain layer, and translate domain
// errors into the API error envelope.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/promokit/discount-api/internal/domain/order"
	"github.com/promokit/discount-api/internal/domain/promotion"
	"github.com/promokit/discount-api/internal/domain/voucher"
)

// Handler carries the dependencies of all HTTP endpoints.
type Handler struct {
	orders     *order.Service
	vouchers   voucher.Repository
	promotions promotion.Repository
}

func New(orders *order.Service, vouchers voucher.Repository, promotions promotion.Repository) *Handler {
	return &Handler{
		orders:     orders,
		vouchers:   vouchers,
		promotions: promotions,
	}
}

// Routes mounts all API endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Post("/apply-discount", h.applyDiscount)
		r.Get("/", h.listOrders)
		r.Get("/user/{userId}", h.listUserOrders)
		r.Get("/{id}", h.getOrder)
	})

	r.Route("/vouchers", func(r chi.Router) {
		r.Post("/", h.createVoucher)
		r.Get("/", h.listVouchers)
		r.Get("/{id}", h.getVoucher)
		r.Put("/{id}", h.updateVoucher)
		r.Delete("/{id}", h.deleteVoucher)
	})

	r.Route("/promotions", func(r chi.Router) {
		r.Post("/", h.createPromotion)
		r.Get("/", h.listPromotions)
		r.Get("/{id}", h.getPromotion)
		r.Put("/{id}", h.updatePromotion)
		r.Delete("/{id}", h.deletePromotion)
	})

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid_input", message)
}

// writeDomainError maps domain errors onto the API envelope: input errors are
// 400, instrument rejections 422, missing records 404, anything else a
// logged 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var instrumentErr *order.InstrumentError
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrNonPositiveTotal),
		errors.Is(err, order.ErrCodeCollision),
		errors.Is(err, order.ErrDuplicatePromotions):
		badRequest(w, err.Error())
	case errors.As(err, &instrumentErr):
		writeError(w, http.StatusUnprocessableEntity, "discount_rejected", instrumentErr.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, voucher.ErrNotFound),
		errors.Is(err, promotion.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
