package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarulabs/taru-api/internal/model"
)

type CartRepository interface {
	// Upsert creates the line or, when a line for the same
	// (user, product, variant) exists, increments its quantity atomically.
	Upsert(ctx context.Context, line *model.CartLine) error
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error
	Delete(ctx context.Context, userID, lineID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

// cartLineSelect joins live product/variant pricing onto the stored lines.
const cartLineSelect = `SELECT cl.id, cl.user_id, cl.product_id, cl.variant_id, cl.quantity,
		p.name, p.sku, v.name, p.price, v.price, cl.created_at, cl.updated_at
	FROM cart_lines cl
	JOIN products p ON p.id = cl.product_id
	LEFT JOIN product_variants v ON v.id = cl.variant_id`

func scanCartLine(row pgx.Row) (*model.CartLine, error) {
	l := &model.CartLine{}
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.VariantID, &l.Quantity,
		&l.ProductName, &l.ProductSKU, &l.VariantName, &l.ProductPrice, &l.VariantPrice,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *pgCartRepo) Upsert(ctx context.Context, line *model.CartLine) error {
	line.ID = uuid.New()
	// The increment runs inside the store, so two concurrent adds for the
	// same line cannot lose an update.
	query := `INSERT INTO cart_lines (id, user_id, product_id, variant_id, quantity, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			  ON CONFLICT (user_id, product_id, variant_id)
			  DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
			  RETURNING id, quantity, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		line.ID, line.UserID, line.ProductID, line.VariantID, line.Quantity,
	).Scan(&line.ID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_lines SET quantity = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		lineID, userID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) Delete(ctx context.Context, userID, lineID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		cartLineSelect+` WHERE cl.user_id = $1 ORDER BY cl.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, *l)
	}
	return lines, nil
}
