package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
	variants map[uuid.UUID]*model.ProductVariant
	views    map[uuid.UUID]int
	sold     map[uuid.UUID]int
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products: make(map[uuid.UUID]*model.Product),
		variants: make(map[uuid.UUID]*model.ProductVariant),
		views:    make(map[uuid.UUID]int),
		sold:     make(map[uuid.UUID]int),
	}
}

func (m *mockProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	for _, p := range m.products {
		if p.SKU == product.SKU {
			return repository.ErrDuplicateKey
		}
	}
	product.ID = uuid.New()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID, activeOnly bool) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok || (activeOnly && !p.IsActive) {
		return nil, nil
	}
	return p, nil
}

func (m *mockProductRepo) GetBySKU(_ context.Context, sku string) (*model.Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	var out []model.Product
	for _, p := range m.products {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProductRepo) Update(_ context.Context, product *model.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := m.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.IsActive = false
	return nil
}

func (m *mockProductRepo) IncrementView(_ context.Context, id uuid.UUID) error {
	m.views[id]++
	return nil
}

func (m *mockProductRepo) IncrementSold(_ context.Context, id uuid.UUID, quantity int) error {
	m.sold[id] += quantity
	return nil
}

func (m *mockProductRepo) ListVariants(_ context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	var out []model.ProductVariant
	for _, v := range m.variants {
		if v.ProductID == productID && v.IsActive {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockProductRepo) GetVariant(_ context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	return m.variants[id], nil
}

type mockCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
	counts     map[uuid.UUID]int
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{
		categories: make(map[uuid.UUID]*model.Category),
		counts:     make(map[uuid.UUID]int),
	}
}

func (m *mockCategoryRepo) Create(_ context.Context, category *model.Category) error {
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrDuplicateKey
		}
	}
	category.ID = uuid.New()
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := m.categories[id]
	if !ok || !c.IsActive {
		return nil, nil
	}
	return c, nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	var out []model.Category
	for _, c := range m.categories {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepo) ProductCounts(_ context.Context) (map[uuid.UUID]int, error) {
	return m.counts, nil
}

func seedCategory(repo *mockCategoryRepo) *model.Category {
	c := &model.Category{ID: uuid.New(), Name: "electronics", IsActive: true}
	repo.categories[c.ID] = c
	return c
}

func TestCatalogService_GetProduct_CountsView(t *testing.T) {
	productRepo := newMockProductRepo()
	p := productRepo.add(&model.Product{
		Name: "Widget", SKU: "W-1", Price: decimal.NewFromInt(10), IsActive: true,
	})
	svc := NewCatalogService(productRepo, newMockCategoryRepo(), nil)

	resp, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, resp.ID)
	assert.Equal(t, 1, productRepo.views[p.ID])

	_, err = svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, productRepo.views[p.ID])
}

func TestCatalogService_GetProduct_InactiveHidden(t *testing.T) {
	productRepo := newMockProductRepo()
	p := productRepo.add(&model.Product{Name: "Gone", SKU: "G-1", IsActive: false})
	svc := NewCatalogService(productRepo, newMockCategoryRepo(), nil)

	_, err := svc.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_CreateProduct_DuplicateSKU(t *testing.T) {
	productRepo := newMockProductRepo()
	categoryRepo := newMockCategoryRepo()
	category := seedCategory(categoryRepo)
	svc := NewCatalogService(productRepo, categoryRepo, nil)

	req := dto.CreateProductRequest{
		CategoryID: category.ID, Name: "Widget", SKU: "W-1",
		Price: decimal.NewFromInt(10),
	}
	_, err := svc.CreateProduct(context.Background(), req)
	require.NoError(t, err)

	req.Name = "Other widget"
	_, err = svc.CreateProduct(context.Background(), req)
	assert.ErrorIs(t, err, ErrSKUTaken)
}

func TestCatalogService_CreateProduct_UnknownCategory(t *testing.T) {
	svc := NewCatalogService(newMockProductRepo(), newMockCategoryRepo(), nil)
	_, err := svc.CreateProduct(context.Background(), dto.CreateProductRequest{
		CategoryID: uuid.New(), Name: "Widget", SKU: "W-1", Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCatalogService_UpdateProduct_PatchesOnlyProvidedFields(t *testing.T) {
	productRepo := newMockProductRepo()
	p := productRepo.add(&model.Product{
		Name: "Widget", Description: "original", SKU: "W-1",
		Price: decimal.NewFromInt(10), StockQuantity: 5, IsActive: true,
	})
	svc := NewCatalogService(productRepo, newMockCategoryRepo(), nil)

	newPrice := decimal.NewFromInt(12)
	resp, err := svc.UpdateProduct(context.Background(), p.ID, dto.UpdateProductRequest{
		Price: &newPrice,
	})
	require.NoError(t, err)
	assert.True(t, newPrice.Equal(resp.Price))
	assert.Equal(t, "Widget", resp.Name)
	assert.Equal(t, "original", resp.Description)
	assert.Equal(t, 5, resp.StockQuantity)
}

func TestCatalogService_DeleteProduct_SoftDeletes(t *testing.T) {
	productRepo := newMockProductRepo()
	p := productRepo.add(&model.Product{Name: "Widget", SKU: "W-1", IsActive: true})
	svc := NewCatalogService(productRepo, newMockCategoryRepo(), nil)

	require.NoError(t, svc.DeleteProduct(context.Background(), p.ID))
	assert.False(t, productRepo.products[p.ID].IsActive)

	_, err := svc.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_GetCategory_ScopesProducts(t *testing.T) {
	productRepo := newMockProductRepo()
	categoryRepo := newMockCategoryRepo()
	category := seedCategory(categoryRepo)
	productRepo.add(&model.Product{
		CategoryID: category.ID, Name: "Widget", SKU: "W-1",
		Price: decimal.NewFromInt(10), IsActive: true,
	})
	productRepo.add(&model.Product{
		CategoryID: uuid.New(), Name: "Elsewhere", SKU: "E-1",
		Price: decimal.NewFromInt(5), IsActive: true,
	})
	svc := NewCatalogService(productRepo, categoryRepo, nil)

	resp, err := svc.GetCategory(context.Background(), category.ID, dto.ListProductsRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, category.ID, resp.Category.ID)
	assert.Equal(t, 1, resp.Category.ProductCount)
	require.Len(t, resp.Products.Products, 1)
	assert.Equal(t, "Widget", resp.Products.Products[0].Name)

	_, err = svc.GetCategory(context.Background(), uuid.New(), dto.ListProductsRequest{Page: 1, Limit: 20})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCatalogService_ListCategories_IncludesCounts(t *testing.T) {
	categoryRepo := newMockCategoryRepo()
	category := seedCategory(categoryRepo)
	categoryRepo.counts[category.ID] = 3
	svc := NewCatalogService(newMockProductRepo(), categoryRepo, nil)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, 3, categories[0].ProductCount)
}
