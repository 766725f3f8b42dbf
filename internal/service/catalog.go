package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSKUTaken         = errors.New("sku already in use")
	ErrCategoryExists   = errors.New("category already exists")
)

const productCacheTTL = 60 * time.Second

// CatalogService serves products and categories, with a short redis cache
// on single-product reads.
type CatalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	redisClient  *redis.Client
}

func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, redisClient *redis.Client) *CatalogService {
	return &CatalogService{productRepo: productRepo, categoryRepo: categoryRepo, redisClient: redisClient}
}

func productCacheKey(id uuid.UUID) string { return "product:" + id.String() }

// GetProduct returns one active product with its variants. The view counter
// is bumped before the cache lookup so cached reads still count.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	if err := s.productRepo.IncrementView(ctx, id); err != nil {
		return nil, err
	}

	cacheKey := productCacheKey(id)
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	variants, err := s.productRepo.ListVariants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	resp := dto.NewProductResponse(product)
	for i := range variants {
		resp.Variants = append(resp.Variants, dto.NewVariantResponse(&variants[i]))
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return &resp, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	filter := repository.ProductFilter{
		Search: req.Search,
		Sort:   req.Sort,
		Order:  req.Order,
		Limit:  req.Limit,
		Offset: (req.Page - 1) * req.Limit,
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, ErrCategoryNotFound
		}
		filter.CategoryID = &id
	}
	if req.MinPrice != nil {
		min, err := decimal.NewFromString(*req.MinPrice)
		if err != nil {
			return nil, fmt.Errorf("parse min_price: %w", err)
		}
		filter.MinPrice = &min
	}
	if req.MaxPrice != nil {
		max, err := decimal.NewFromString(*req.MaxPrice)
		if err != nil {
			return nil, fmt.Errorf("parse max_price: %w", err)
		}
		filter.MaxPrice = &max
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	resp := &dto.ProductListResponse{
		Products: make([]dto.ProductResponse, 0, len(products)),
		Total:    total,
		Page:     req.Page,
		Limit:    req.Limit,
	}
	for i := range products {
		resp.Products = append(resp.Products, dto.NewProductResponse(&products[i]))
	}
	return resp, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	product := &model.Product{
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		SKU:              req.SKU,
		Price:            req.Price,
		StockQuantity:    req.StockQuantity,
		MinStockLevel:    req.MinStockLevel,
		IsActive:         true,
		IsFeatured:       req.IsFeatured,
		Tags:             req.Tags,
	}
	if req.ComparePrice != nil {
		product.ComparePrice = decimal.NullDecimal{Decimal: *req.ComparePrice, Valid: true}
	}
	if req.CostPrice != nil {
		product.CostPrice = decimal.NullDecimal{Decimal: *req.CostPrice, Valid: true}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrSKUTaken
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	resp := dto.NewProductResponse(product)
	return &resp, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
		product.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.ShortDescription != nil {
		product.ShortDescription = *req.ShortDescription
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.ComparePrice != nil {
		product.ComparePrice = decimal.NullDecimal{Decimal: *req.ComparePrice, Valid: true}
	}
	if req.CostPrice != nil {
		product.CostPrice = decimal.NullDecimal{Decimal: *req.CostPrice, Valid: true}
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.MinStockLevel != nil {
		product.MinStockLevel = *req.MinStockLevel
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		product.IsFeatured = *req.IsFeatured
	}
	if req.Tags != nil {
		product.Tags = *req.Tags
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := dto.NewProductResponse(product)
	return &resp, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]dto.CategoryResponse, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	counts, err := s.categoryRepo.ProductCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	resp := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		c := &categories[i]
		resp = append(resp, dto.CategoryResponse{
			ID:           c.ID,
			Name:         c.Name,
			Description:  c.Description,
			ParentID:     c.ParentID,
			ProductCount: counts[c.ID],
			CreatedAt:    c.CreatedAt,
		})
	}
	return resp, nil
}

// GetCategory returns one active category with a paginated page of its
// products.
func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID, req dto.ListProductsRequest) (*dto.CategoryDetailResponse, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		CategoryID: &id,
		Sort:       req.Sort,
		Order:      req.Order,
		Limit:      req.Limit,
		Offset:     (req.Page - 1) * req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}

	resp := &dto.CategoryDetailResponse{
		Category: dto.CategoryResponse{
			ID:           category.ID,
			Name:         category.Name,
			Description:  category.Description,
			ParentID:     category.ParentID,
			ProductCount: total,
			CreatedAt:    category.CreatedAt,
		},
		Products: dto.ProductListResponse{
			Products: make([]dto.ProductResponse, 0, len(products)),
			Total:    total,
			Page:     req.Page,
			Limit:    req.Limit,
		},
	}
	for i := range products {
		resp.Products.Products = append(resp.Products.Products, dto.NewProductResponse(&products[i]))
	}
	return resp, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	category := &model.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		ParentID:    category.ParentID,
		CreatedAt:   category.CreatedAt,
	}, nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, productCacheKey(id))
	}
}
