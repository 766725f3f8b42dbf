package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarulabs/taru-api/internal/model"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	// Redeem bumps used_count, refusing once the usage limit is reached.
	// Returns false when the limit blocked the redemption.
	Redeem(ctx context.Context, id uuid.UUID) (bool, error)
}

type pgCouponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &pgCouponRepo{pool: pool}
}

const couponColumns = `id, code, name, description, discount_type, discount_value,
	min_order_amount, max_discount_amount, usage_limit, used_count,
	is_active, valid_from, valid_until, created_at`

func (r *pgCouponRepo) Create(ctx context.Context, coupon *model.Coupon) error {
	coupon.ID = uuid.New()
	coupon.Code = strings.ToUpper(coupon.Code)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (id, code, name, description, discount_type, discount_value,
			min_order_amount, max_discount_amount, usage_limit, is_active,
			valid_from, valid_until, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		 RETURNING created_at`,
		coupon.ID, coupon.Code, coupon.Name, coupon.Description,
		coupon.DiscountType, coupon.DiscountValue, coupon.MinOrderAmount,
		coupon.MaxDiscountAmount, coupon.UsageLimit, coupon.IsActive,
		coupon.ValidFrom, coupon.ValidUntil,
	).Scan(&coupon.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

func (r *pgCouponRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c := &model.Coupon{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`,
		strings.ToUpper(code),
	).Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.DiscountType, &c.DiscountValue,
		&c.MinOrderAmount, &c.MaxDiscountAmount, &c.UsageLimit, &c.UsedCount,
		&c.IsActive, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (r *pgCouponRepo) Redeem(ctx context.Context, id uuid.UUID) (bool, error) {
	// The limit check happens in the same statement, so concurrent
	// redemptions cannot push used_count past the limit.
	ct, err := r.pool.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1
		 WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, id)
	if err != nil {
		return false, fmt.Errorf("redeem coupon: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
