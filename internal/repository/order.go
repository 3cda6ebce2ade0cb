package repository

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/discount-api/internal/domain/order"
)

const orderColumns = `id, user_id, items, total_amount, discount_applied,
	final_amount, applied_voucher, applied_promotions, created_at`

// OrderRepository stores orders in PostgreSQL. Line items and applied
// discount snapshots are kept as JSONB documents so an order stays a
// self-contained record of what was charged.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ order.Repository = (*OrderRepository)(nil)

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o          order.Order
		items      []byte
		voucherDoc []byte
		promosDoc  []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &items, &o.TotalAmount, &o.DiscountApplied,
		&o.FinalAmount, &voucherDoc, &promosDoc, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, errors.Wrap(err, "decode items")
	}
	if voucherDoc != nil {
		if err := json.Unmarshal(voucherDoc, &o.AppliedVoucher); err != nil {
			return o, errors.Wrap(err, "decode applied voucher")
		}
	}
	if err := json.Unmarshal(promosDoc, &o.AppliedPromotions); err != nil {
		return o, errors.Wrap(err, "decode applied promotions")
	}
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	promos, err := json.Marshal(o.AppliedPromotions)
	if err != nil {
		return errors.Wrap(err, "encode applied promotions")
	}
	var voucherDoc []byte
	if o.AppliedVoucher != nil {
		if voucherDoc, err = json.Marshal(o.AppliedVoucher); err != nil {
			return errors.Wrap(err, "encode applied voucher")
		}
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, items, total_amount, discount_applied,
			final_amount, applied_voucher, applied_promotions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		o.ID, o.UserID, items, o.TotalAmount, o.DiscountApplied,
		o.FinalAmount, voucherDoc, promos,
	).Scan(&o.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query order by id")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query orders by user")
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return list, nil
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return list, nil
}
