package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarulabs/taru-api/internal/model"
)

type WishlistRepository interface {
	// Add returns false without error when the product is already saved.
	Add(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	// ListProducts returns the saved products, newest first.
	ListProducts(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
}

type pgWishlistRepo struct{ pool *pgxpool.Pool }

func NewWishlistRepository(pool *pgxpool.Pool) WishlistRepository {
	return &pgWishlistRepo{pool: pool}
}

func (r *pgWishlistRepo) Add(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO wishlist_items (id, user_id, product_id, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		uuid.New(), userID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("add wishlist item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgWishlistRepo) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgWishlistRepo) ListProducts(ctx context.Context, userID uuid.UUID) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.category_id, p.name, p.description, p.short_description, p.sku,
			p.price, p.compare_price, p.cost_price, p.stock_quantity, p.min_stock_level,
			p.is_active, p.is_featured, p.tags, p.rating_average, p.rating_count,
			p.view_count, p.sold_count, p.created_at, p.updated_at
		 FROM wishlist_items w
		 JOIN products p ON p.id = w.product_id
		 WHERE w.user_id = $1 AND p.is_active
		 ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist product: %w", err)
		}
		products = append(products, *p)
	}
	return products, nil
}
