package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarulabs/taru-api/internal/model"
)

type ReviewRepository interface {
	// Create inserts the review and recomputes the product's rating
	// aggregate in the same transaction. A duplicate (user, product) pair
	// surfaces as ErrDuplicateKey.
	Create(ctx context.Context, review *model.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
	// HasVerifiedPurchase reports whether the user has an order containing
	// the product with status confirmed/processing/shipped/delivered.
	HasVerifiedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

func (r *pgReviewRepo) Create(ctx context.Context, review *model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	review.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO reviews (id, user_id, product_id, rating, title, comment,
			is_verified_purchase, is_approved, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		review.ID, review.UserID, review.ProductID, review.Rating, review.Title,
		review.Comment, review.IsVerifiedPurchase, review.IsApproved,
	).Scan(&review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert review: %w", err)
	}

	// Full recomputation over approved reviews, not an incremental running
	// average. COALESCE covers the no-approved-reviews case.
	_, err = tx.Exec(ctx,
		`UPDATE products SET
			rating_average = COALESCE((
				SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews
				WHERE product_id = $1 AND is_approved), 0),
			rating_count = (
				SELECT COUNT(*) FROM reviews
				WHERE product_id = $1 AND is_approved),
			updated_at = NOW()
		 WHERE id = $1`,
		review.ProductID,
	)
	if err != nil {
		return fmt.Errorf("recompute product rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	return nil
}

func (r *pgReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, product_id, rating, title, comment,
			is_verified_purchase, is_approved, created_at, updated_at
		 FROM reviews WHERE product_id = $1 AND is_approved
		 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Title,
			&rv.Comment, &rv.IsVerifiedPurchase, &rv.IsApproved, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

func (r *pgReviewRepo) HasVerifiedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND oi.product_id = $2
			  AND o.status IN ('confirmed', 'processing', 'shipped', 'delivered'))`,
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase history: %w", err)
	}
	return exists, nil
}
