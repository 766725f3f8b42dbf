package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
)

type mockCartRepo struct {
	lines map[uuid.UUID]*model.CartLine
	// catalog data joined onto lines on read
	products *mockProductRepo
}

func newMockCartRepo(products *mockProductRepo) *mockCartRepo {
	return &mockCartRepo{lines: make(map[uuid.UUID]*model.CartLine), products: products}
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *mockCartRepo) Upsert(_ context.Context, line *model.CartLine) error {
	for _, l := range m.lines {
		if l.UserID == line.UserID && l.ProductID == line.ProductID && sameVariant(l.VariantID, line.VariantID) {
			l.Quantity += line.Quantity
			*line = *l
			return nil
		}
	}
	line.ID = uuid.New()
	line.CreatedAt = time.Now()
	m.lines[line.ID] = line
	return nil
}

func (m *mockCartRepo) UpdateQuantity(_ context.Context, userID, lineID uuid.UUID, quantity int) error {
	l, ok := m.lines[lineID]
	if !ok || l.UserID != userID {
		return pgx.ErrNoRows
	}
	l.Quantity = quantity
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, userID, lineID uuid.UUID) error {
	l, ok := m.lines[lineID]
	if !ok || l.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.lines, lineID)
	return nil
}

func (m *mockCartRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	var out []model.CartLine
	for _, l := range m.lines {
		if l.UserID != userID {
			continue
		}
		line := *l
		if p, ok := m.products.products[l.ProductID]; ok {
			line.ProductName = p.Name
			line.ProductSKU = p.SKU
			line.ProductPrice = p.Price
		}
		if l.VariantID != nil {
			if v, ok := m.products.variants[*l.VariantID]; ok {
				line.VariantName = &v.Name
				line.VariantPrice = v.Price
			}
		}
		out = append(out, line)
	}
	return out, nil
}

func newTestCartService() (*CartService, *mockCartRepo, *mockProductRepo) {
	productRepo := newMockProductRepo()
	cartRepo := newMockCartRepo(productRepo)
	return NewCartService(cartRepo, productRepo), cartRepo, productRepo
}

func TestCartService_AddItem_MergesQuantities(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{
		Name: "Widget", SKU: "W-1", Price: decimal.NewFromInt(10), IsActive: true,
	})
	userID := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, userID, dto.AddCartItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, userID, dto.AddCartItemRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(cart.Subtotal))
}

func TestCartService_AddItem_RejectsNonPositiveQuantity(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{Name: "Widget", SKU: "W-1", IsActive: true})

	for _, qty := range []int{0, -1} {
		_, err := svc.AddItem(context.Background(), uuid.New(), dto.AddCartItemRequest{
			ProductID: p.ID, Quantity: qty,
		})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestCartService_AddItem_UnknownOrInactiveProduct(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	inactive := productRepo.add(&model.Product{Name: "Gone", SKU: "G-1", IsActive: false})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, uuid.New(), dto.AddCartItemRequest{ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.AddItem(ctx, uuid.New(), dto.AddCartItemRequest{ProductID: inactive.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_VariantMustBelongToProduct(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{Name: "Shirt", SKU: "S-1", Price: decimal.NewFromInt(20), IsActive: true})
	other := productRepo.add(&model.Product{Name: "Hat", SKU: "H-1", Price: decimal.NewFromInt(5), IsActive: true})
	v := &model.ProductVariant{ID: uuid.New(), ProductID: other.ID, Name: "L", IsActive: true}
	productRepo.variants[v.ID] = v

	_, err := svc.AddItem(context.Background(), uuid.New(), dto.AddCartItemRequest{
		ProductID: p.ID, VariantID: &v.ID, Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrVariantMismatch)
}

func TestCartService_Snapshot_PrefersVariantPrice(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{Name: "Shirt", SKU: "S-1", Price: decimal.NewFromInt(20), IsActive: true})
	v := &model.ProductVariant{
		ID: uuid.New(), ProductID: p.ID, Name: "XL", IsActive: true,
		Price: decimal.NullDecimal{Decimal: decimal.NewFromInt(25), Valid: true},
	}
	productRepo.variants[v.ID] = v
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, dto.AddCartItemRequest{
		ProductID: p.ID, VariantID: &v.ID, Quantity: 2,
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, decimal.NewFromInt(25).Equal(cart.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(50).Equal(cart.Subtotal))
}

func TestCartService_SetQuantity_ZeroDeletesLine(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{Name: "Widget", SKU: "W-1", Price: decimal.NewFromInt(10), IsActive: true})
	userID := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, userID, dto.AddCartItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	lineID := cart.Items[0].ID

	cart, err = svc.SetQuantity(ctx, userID, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_SetQuantity_ForeignLineNotFound(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{Name: "Widget", SKU: "W-1", Price: decimal.NewFromInt(10), IsActive: true})
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, uuid.New(), dto.AddCartItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, uuid.New(), cart.Items[0].ID, 4)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveItem(t *testing.T) {
	svc, _, productRepo := newTestCartService()
	p := productRepo.add(&model.Product{Name: "Widget", SKU: "W-1", Price: decimal.NewFromInt(10), IsActive: true})
	userID := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, userID, dto.AddCartItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	cart, err = svc.RemoveItem(ctx, userID, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}
