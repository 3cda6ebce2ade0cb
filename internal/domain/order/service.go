package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/promokit/discount-api/internal/domain/discount"
	"github.com/promokit/discount-api/internal/domain/promotion"
	"github.com/promokit/discount-api/internal/domain/voucher"
)

// VoucherStore provides the voucher operations the engine consumes:
// lookup by code and the atomic usage increment.
type VoucherStore interface {
	FindByCode(ctx context.Context, code string) (*voucher.Voucher, error)
	IncrementUsage(ctx context.Context, id string) error
}

// PromotionStore provides the promotion operations the engine consumes.
type PromotionStore interface {
	FindByCode(ctx context.Context, code string) (*promotion.Promotion, error)
	IncrementUsage(ctx context.Context, id string) error
}

// ApplyDiscountsRequest is the input for a single discount application.
type ApplyDiscountsRequest struct {
	UserID         string
	Items          []LineItem
	VoucherCode    string
	PromotionCodes []string
}

// Service applies vouchers and promotions to a new order and persists the
// result. All collaborators are injected, so tests can substitute them.
type Service struct {
	vouchers   VoucherStore
	promotions PromotionStore
	orders     Repository
	cap        discount.Cap
	now        func() time.Time
}

// NewService creates an order Service with the required stores and the
// configured global discount cap.
func NewService(vouchers VoucherStore, promotions PromotionStore, orders Repository, cap discount.Cap) *Service {
	return &Service{
		vouchers:   vouchers,
		promotions: promotions,
		orders:     orders,
		cap:        cap,
		now:        time.Now,
	}
}

// ApplyDiscounts validates the voucher and promotion codes against the order,
// computes and caps the combined discount, records instrument usage, and
// persists the resulting order.
//
// Usage increments are issued as soon as each instrument validates, voucher
// first, then promotions in request order. They are independent writes with
// no surrounding transaction: a promotion failing validation after the
// voucher's usage was already incremented aborts the order but does not roll
// the increment back.
func (s *Service) ApplyDiscounts(ctx context.Context, req ApplyDiscountsRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	total := subtotal(req.Items)
	if !total.IsPositive() {
		return nil, ErrNonPositiveTotal
	}

	seen := make(map[string]struct{}, len(req.PromotionCodes))
	for _, code := range req.PromotionCodes {
		if req.VoucherCode != "" && code == req.VoucherCode {
			return nil, ErrCodeCollision
		}
		if _, dup := seen[code]; dup {
			return nil, ErrDuplicatePromotions
		}
		seen[code] = struct{}{}
	}

	now := s.now()
	raw := decimal.Zero

	var appliedVoucher *AppliedVoucher
	if req.VoucherCode != "" {
		v, err := s.vouchers.FindByCode(ctx, req.VoucherCode)
		if err != nil {
			if errors.Is(err, voucher.ErrNotFound) {
				return nil, &InstrumentError{Kind: "voucher", Code: req.VoucherCode, Reason: err}
			}
			return nil, errors.Wrapf(err, "find voucher %q", req.VoucherCode)
		}
		if err := v.Validate(total, now); err != nil {
			return nil, &InstrumentError{Kind: "voucher", Code: v.Code, Reason: err}
		}

		amount := v.Discount.Amount(total)
		if err := s.vouchers.IncrementUsage(ctx, v.ID); err != nil {
			return nil, errors.Wrapf(err, "increment usage of voucher %q", v.Code)
		}

		appliedVoucher = &AppliedVoucher{VoucherID: v.ID, Code: v.Code, DiscountAmount: amount}
		raw = raw.Add(amount)
	}

	promoItems := promotionItems(req.Items)

	// Promotion validations are independent reads and run concurrently;
	// results stay index-aligned with the request order.
	type validated struct {
		promo    *promotion.Promotion
		eligible decimal.Decimal
	}
	results := make([]validated, len(req.PromotionCodes))

	g, gctx := errgroup.WithContext(ctx)
	for i, code := range req.PromotionCodes {
		g.Go(func() error {
			p, err := s.promotions.FindByCode(gctx, code)
			if err != nil {
				if errors.Is(err, promotion.ErrNotFound) {
					return &InstrumentError{Kind: "promotion", Code: code, Reason: err}
				}
				return errors.Wrapf(err, "find promotion %q", code)
			}
			if err := p.Validate(now); err != nil {
				return &InstrumentError{Kind: "promotion", Code: p.Code, Reason: err}
			}
			eligible, err := p.EligibleSubtotal(promoItems)
			if err != nil {
				return &InstrumentError{Kind: "promotion", Code: p.Code, Reason: err}
			}
			results[i] = validated{promo: p, eligible: eligible}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Usage increments and result assembly are sequential, in request order.
	appliedPromotions := make([]AppliedPromotion, 0, len(results))
	for _, r := range results {
		amount := r.promo.Discount.Amount(r.eligible)
		if err := s.promotions.IncrementUsage(ctx, r.promo.ID); err != nil {
			return nil, errors.Wrapf(err, "increment usage of promotion %q", r.promo.Code)
		}
		appliedPromotions = append(appliedPromotions, AppliedPromotion{
			PromotionID:    r.promo.ID,
			Code:           r.promo.Code,
			DiscountAmount: amount,
		})
		raw = raw.Add(amount)
	}

	applied := s.cap.Enforce(total, raw)
	if applied.LessThan(raw) && raw.IsPositive() {
		if appliedVoucher != nil {
			appliedVoucher.DiscountAmount = discount.Rescale(appliedVoucher.DiscountAmount, applied, raw)
		}
		for i := range appliedPromotions {
			appliedPromotions[i].DiscountAmount = discount.Rescale(appliedPromotions[i].DiscountAmount, applied, raw)
		}
	}

	o := &Order{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		Items:             req.Items,
		TotalAmount:       total,
		DiscountApplied:   applied,
		FinalAmount:       total.Sub(applied),
		AppliedVoucher:    appliedVoucher,
		AppliedPromotions: appliedPromotions,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// GetByID returns a single order.
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "find order %q", id)
	}
	return o, nil
}

// GetByUser returns all orders of a user, newest first.
func (s *Service) GetByUser(ctx context.Context, userID string) ([]Order, error) {
	list, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "find orders of user %q", userID)
	}
	return list, nil
}

// GetAll returns every order, newest first.
func (s *Service) GetAll(ctx context.Context) ([]Order, error) {
	list, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "find all orders")
	}
	return list, nil
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func promotionItems(items []LineItem) []promotion.Item {
	out := make([]promotion.Item, len(items))
	for i, item := range items {
		out[i] = promotion.Item{
			ProductID:  item.ProductID,
			CategoryID: item.CategoryID,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}
	return out
}
