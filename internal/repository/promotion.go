package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/discount-api/internal/domain/promotion"
)

const promotionColumns = `id, code, discount_type, discount_value,
	eligible_categories, eligible_items, expires_at,
	usage_limit, used_count, is_active, created_at, updated_at`

// PromotionRepository stores promotions in PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

var _ promotion.Repository = (*PromotionRepository)(nil)

func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var p promotion.Promotion
	err := row.Scan(
		&p.ID, &p.Code, &p.Discount.Type, &p.Discount.Value,
		&p.EligibleCategories, &p.EligibleItems, &p.ExpiresAt,
		&p.UsageLimit, &p.UsedCount, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE code = $1`, code)
	if err != nil {
		return nil, errors.Wrap(err, "query promotion by code")
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promotion.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan promotion")
	}
	return &p, nil
}

func (r *PromotionRepository) FindByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query promotion by id")
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promotion.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan promotion")
	}
	return &p, nil
}

func (r *PromotionRepository) List(ctx context.Context, active *bool) ([]promotion.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions`
	args := []any{}
	if active != nil {
		query += ` WHERE is_active = $1`
		args = append(args, *active)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query promotions")
	}
	list, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, errors.Wrap(err, "scan promotions")
	}
	return list, nil
}

func (r *PromotionRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promotions WHERE code = $1 AND id::text <> $2)`,
		code, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check promotion code")
	}
	return exists, nil
}

func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO promotions (code, discount_type, discount_value,
			eligible_categories, eligible_items, expires_at, usage_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, used_count, created_at, updated_at`,
		p.Code, p.Discount.Type, p.Discount.Value,
		p.EligibleCategories, p.EligibleItems, p.ExpiresAt, p.UsageLimit, p.Active,
	).Scan(&p.ID, &p.UsedCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert promotion")
	}
	return nil
}

func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE promotions
		SET code = $2, discount_type = $3, discount_value = $4,
			eligible_categories = $5, eligible_items = $6, expires_at = $7,
			usage_limit = $8, is_active = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Code, p.Discount.Type, p.Discount.Value,
		p.EligibleCategories, p.EligibleItems, p.ExpiresAt,
		p.UsageLimit, p.Active,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return promotion.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "update promotion")
	}
	return nil
}

func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete promotion")
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

func (r *PromotionRepository) IncrementUsage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE promotions SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "increment promotion usage")
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}
