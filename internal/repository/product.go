package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tarulabs/taru-api/internal/model"
)

// ProductFilter narrows and orders product listings.
type ProductFilter struct {
	CategoryID      *uuid.UUID
	Search          string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Sort            string // name | price | rating | created_at
	Order           string // asc | desc
	IncludeInactive bool
	Limit           int
	Offset          int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID, activeOnly bool) (*model.Product, error)
	GetBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	IncrementView(ctx context.Context, id uuid.UUID) error
	IncrementSold(ctx context.Context, id uuid.UUID, quantity int) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error)
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, category_id, name, description, short_description, sku,
	price, compare_price, cost_price, stock_quantity, min_stock_level,
	is_active, is_featured, tags, rating_average, rating_count,
	view_count, sold_count, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.ShortDescription, &p.SKU,
		&p.Price, &p.ComparePrice, &p.CostPrice, &p.StockQuantity, &p.MinStockLevel,
		&p.IsActive, &p.IsFeatured, &p.Tags, &p.RatingAverage, &p.RatingCount,
		&p.ViewCount, &p.SoldCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, category_id, name, description, short_description, sku,
				price, compare_price, cost_price, stock_quantity, min_stock_level,
				is_active, is_featured, tags, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
			  RETURNING rating_average, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Description,
		product.ShortDescription, product.SKU, product.Price, product.ComparePrice,
		product.CostPrice, product.StockQuantity, product.MinStockLevel,
		product.IsActive, product.IsFeatured, product.Tags,
	).Scan(&product.RatingAverage, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID, activeOnly bool) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) GetBySKU(ctx context.Context, sku string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = $1`, sku))
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	allowedSorts := map[string]string{
		"name": "name", "price": "price", "rating": "rating_average", "created_at": "created_at",
	}
	sort, ok := allowedSorts[f.Sort]
	if !ok {
		sort = "created_at"
	}
	order := "DESC"
	if f.Order == "asc" {
		order = "ASC"
	}

	where := `WHERE ($1::bool OR is_active)
		AND ($2::uuid IS NULL OR category_id = $2)
		AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%' OR tags ILIKE '%' || $3 || '%')
		AND ($4::numeric IS NULL OR price >= $4)
		AND ($5::numeric IS NULL OR price <= $5)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where,
		f.IncludeInactive, f.CategoryID, f.Search, f.MinPrice, f.MaxPrice,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s LIMIT $6 OFFSET $7`,
		productColumns, where, sort, order)
	rows, err := r.pool.Query(ctx, query,
		f.IncludeInactive, f.CategoryID, f.Search, f.MinPrice, f.MaxPrice, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET category_id=$2, name=$3, description=$4, short_description=$5,
				price=$6, compare_price=$7, cost_price=$8, stock_quantity=$9, min_stock_level=$10,
				is_active=$11, is_featured=$12, tags=$13, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Description,
		product.ShortDescription, product.Price, product.ComparePrice, product.CostPrice,
		product.StockQuantity, product.MinStockLevel, product.IsActive, product.IsFeatured,
		product.Tags,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// SoftDelete deactivates the product so historical orders keep resolving it.
func (r *pgProductRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) IncrementView(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE products SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

func (r *pgProductRepo) IncrementSold(ctx context.Context, id uuid.UUID, quantity int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE products SET sold_count = sold_count + $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("increment sold count: %w", err)
	}
	return nil
}

func (r *pgProductRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, name, sku, price, stock_quantity, is_active, attributes
		 FROM product_variants WHERE product_id = $1 AND is_active ORDER BY name`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []model.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, *v)
	}
	return variants, nil
}

func (r *pgProductRepo) GetVariant(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	v, err := scanVariant(r.pool.QueryRow(ctx,
		`SELECT id, product_id, name, sku, price, stock_quantity, is_active, attributes
		 FROM product_variants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

func scanVariant(row pgx.Row) (*model.ProductVariant, error) {
	v := &model.ProductVariant{}
	var attrs []byte
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Price,
		&v.StockQuantity, &v.IsActive, &attrs)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &v.Attributes); err != nil {
			return nil, fmt.Errorf("decode variant attributes: %w", err)
		}
	}
	return v, nil
}
