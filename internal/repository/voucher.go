package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/discount-api/internal/domain/voucher"
)

const voucherColumns = `id, code, discount_type, discount_value, expires_at,
	usage_limit, used_count, min_order_value, is_active, created_at, updated_at`

// VoucherRepository stores vouchers in PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

var _ voucher.Repository = (*VoucherRepository)(nil)

func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

func scanVoucher(row pgx.CollectableRow) (voucher.Voucher, error) {
	var v voucher.Voucher
	err := row.Scan(
		&v.ID, &v.Code, &v.Discount.Type, &v.Discount.Value, &v.ExpiresAt,
		&v.UsageLimit, &v.UsedCount, &v.MinOrderValue, &v.Active,
		&v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code)
	if err != nil {
		return nil, errors.Wrap(err, "query voucher by code")
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, voucher.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan voucher")
	}
	return &v, nil
}

func (r *VoucherRepository) FindByID(ctx context.Context, id string) (*voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query voucher by id")
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, voucher.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan voucher")
	}
	return &v, nil
}

func (r *VoucherRepository) List(ctx context.Context, active *bool) ([]voucher.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers`
	args := []any{}
	if active != nil {
		query += ` WHERE is_active = $1`
		args = append(args, *active)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query vouchers")
	}
	list, err := pgx.CollectRows(rows, scanVoucher)
	if err != nil {
		return nil, errors.Wrap(err, "scan vouchers")
	}
	return list, nil
}

func (r *VoucherRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vouchers WHERE code = $1 AND id::text <> $2)`,
		code, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check voucher code")
	}
	return exists, nil
}

func (r *VoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO vouchers (code, discount_type, discount_value, expires_at,
			usage_limit, min_order_value, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, used_count, created_at, updated_at`,
		v.Code, v.Discount.Type, v.Discount.Value, v.ExpiresAt,
		v.UsageLimit, v.MinOrderValue, v.Active,
	).Scan(&v.ID, &v.UsedCount, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert voucher")
	}
	return nil
}

func (r *VoucherRepository) Update(ctx context.Context, v *voucher.Voucher) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE vouchers
		SET code = $2, discount_type = $3, discount_value = $4, expires_at = $5,
			usage_limit = $6, min_order_value = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		v.ID, v.Code, v.Discount.Type, v.Discount.Value, v.ExpiresAt,
		v.UsageLimit, v.MinOrderValue, v.Active,
	).Scan(&v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return voucher.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "update voucher")
	}
	return nil
}

func (r *VoucherRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete voucher")
	}
	if tag.RowsAffected() == 0 {
		return voucher.ErrNotFound
	}
	return nil
}

func (r *VoucherRepository) IncrementUsage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE vouchers SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "increment voucher usage")
	}
	if tag.RowsAffected() == 0 {
		return voucher.ErrNotFound
	}
	return nil
}
