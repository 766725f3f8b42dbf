package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tarulabs/taru-api/internal/model"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping integration tests")
		os.Exit(0)
	}

	var err error
	testPool, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	code := m.Run()
	os.Exit(code)
}

func cleanupTable(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := testPool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Fatalf("failed to cleanup table %s: %v", table, err)
		}
	}
}

func seedUser(t *testing.T) *model.User {
	t.Helper()
	user := &model.User{
		Username:     "u-" + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, price int64) *model.Product {
	t.Helper()
	ctx := context.Background()
	category := &model.Category{Name: "c-" + uuid.NewString()[:8], IsActive: true}
	require.NoError(t, NewCategoryRepository(testPool).Create(ctx, category))

	product := &model.Product{
		CategoryID: category.ID,
		Name:       "Widget",
		SKU:        "sku-" + uuid.NewString()[:8],
		Price:      decimal.NewFromInt(price),
		IsActive:   true,
	}
	require.NoError(t, NewProductRepository(testPool).Create(ctx, product))
	return product
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	cleanupTable(t, "users")
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	first := &model.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, repo.Create(ctx, first))

	dup := &model.User{Username: "ada2", Email: "ada@example.com", PasswordHash: "x", IsActive: true}
	require.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateKey)
}

func TestCartRepository_UpsertIncrementsExistingLine(t *testing.T) {
	cleanupTable(t, "cart_lines", "products", "categories", "users")
	ctx := context.Background()
	user := seedUser(t)
	product := seedProduct(t, 10)
	repo := NewCartRepository(testPool)

	first := &model.CartLine{UserID: user.ID, ProductID: product.ID, Quantity: 2}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &model.CartLine{UserID: user.ID, ProductID: product.ID, Quantity: 3}
	require.NoError(t, repo.Upsert(ctx, second))
	require.Equal(t, 5, second.Quantity)
	require.Equal(t, first.ID, second.ID)

	lines, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 5, lines[0].Quantity)
}

func TestCartRepository_ConcurrentAddsMergeWithoutLostUpdates(t *testing.T) {
	cleanupTable(t, "cart_lines", "products", "categories", "users")
	user := seedUser(t)
	product := seedProduct(t, 10)
	repo := NewCartRepository(testPool)

	const adders = 8
	errs := make(chan error, adders)
	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Upsert(context.Background(), &model.CartLine{
				UserID: user.ID, ProductID: product.ID, Quantity: 1,
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	lines, err := repo.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, adders, lines[0].Quantity)
}

func seedAddress(t *testing.T, userID uuid.UUID, isDefault bool) *model.Address {
	t.Helper()
	address := &model.Address{
		UserID:       userID,
		Type:         "shipping",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AddressLine1: "12 Analytical Row",
		City:         "London",
		State:        "LDN",
		PostalCode:   "EC1",
		Country:      "GB",
		IsDefault:    isDefault,
	}
	require.NoError(t, NewAddressRepository(testPool).Create(context.Background(), address))
	return address
}

func TestAddressRepository_SingleDefaultPerUser(t *testing.T) {
	cleanupTable(t, "addresses", "users")
	ctx := context.Background()
	user := seedUser(t)
	repo := NewAddressRepository(testPool)

	first := seedAddress(t, user.ID, true)
	second := seedAddress(t, user.ID, true)

	assertDefault := func(wantID uuid.UUID) {
		t.Helper()
		addresses, err := repo.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, addresses, 2)
		var defaults []uuid.UUID
		for _, a := range addresses {
			if a.IsDefault {
				defaults = append(defaults, a.ID)
			}
		}
		require.Equal(t, []uuid.UUID{wantID}, defaults)
	}

	// Creating a second default demotes the first.
	assertDefault(second.ID)

	// Promoting through Update demotes the other one the same way.
	first.IsDefault = true
	require.NoError(t, repo.Update(ctx, first))
	assertDefault(first.ID)
}

func TestOrderRepository_PlaceConsumesCartAtomically(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_lines", "products", "categories", "users")
	ctx := context.Background()
	user := seedUser(t)
	product := seedProduct(t, 10)

	cartRepo := NewCartRepository(testPool)
	require.NoError(t, cartRepo.Upsert(ctx, &model.CartLine{
		UserID: user.ID, ProductID: product.ID, Quantity: 2,
	}))

	orderRepo := NewOrderRepository(testPool)
	order, err := orderRepo.Place(ctx, user.ID, func(lines []model.CartLine) (*model.Order, error) {
		require.Len(t, lines, 1)
		subtotal := lines[0].TotalPrice()
		return &model.Order{
			OrderNumber:   "ORD-20260828-0001",
			UserID:        user.ID,
			Status:        model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusPending,
			Subtotal:      subtotal,
			TotalAmount:   subtotal,
			Currency:      "USD",
			Items: []model.OrderItem{{
				ProductID:   lines[0].ProductID,
				ProductName: lines[0].ProductName,
				ProductSKU:  lines[0].ProductSKU,
				Quantity:    lines[0].Quantity,
				UnitPrice:   lines[0].UnitPrice(),
				TotalPrice:  lines[0].TotalPrice(),
			}},
		}, nil
	})
	require.NoError(t, err)

	// Cart is consumed in the same transaction.
	lines, err := cartRepo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, lines)

	loaded, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.True(t, decimal.NewFromInt(20).Equal(loaded.TotalAmount))
}

func TestOrderRepository_PlaceRejectsDuplicateOrderNumber(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_lines", "products", "categories", "users")
	ctx := context.Background()
	user := seedUser(t)
	product := seedProduct(t, 10)

	cartRepo := NewCartRepository(testPool)
	orderRepo := NewOrderRepository(testPool)
	build := func(lines []model.CartLine) (*model.Order, error) {
		order := &model.Order{
			OrderNumber: "ORD-20260828-0002", UserID: user.ID,
			Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending,
			Subtotal: decimal.NewFromInt(10), TotalAmount: decimal.NewFromInt(10),
			Currency: "USD",
		}
		for i := range lines {
			l := &lines[i]
			order.Items = append(order.Items, model.OrderItem{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				ProductSKU:  l.ProductSKU,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice(),
				TotalPrice:  l.TotalPrice(),
			})
		}
		return order, nil
	}

	require.NoError(t, cartRepo.Upsert(ctx, &model.CartLine{
		UserID: user.ID, ProductID: product.ID, Quantity: 1,
	}))
	_, err := orderRepo.Place(ctx, user.ID, build)
	require.NoError(t, err)

	require.NoError(t, cartRepo.Upsert(ctx, &model.CartLine{
		UserID: user.ID, ProductID: product.ID, Quantity: 1,
	}))
	_, err = orderRepo.Place(ctx, user.ID, build)
	require.ErrorIs(t, err, ErrDuplicateKey)

	// The failed transaction leaves nothing behind: the cart is intact and
	// no second order or orphaned item row was written.
	lines, err := cartRepo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	var orderCount, itemCount int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount))
	require.Equal(t, 1, orderCount)
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&itemCount))
	require.Equal(t, 1, itemCount)
}

func TestOrderRepository_UpdateStatusStampsOnce(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_lines", "products", "categories", "users")
	ctx := context.Background()
	user := seedUser(t)
	product := seedProduct(t, 10)

	cartRepo := NewCartRepository(testPool)
	require.NoError(t, cartRepo.Upsert(ctx, &model.CartLine{
		UserID: user.ID, ProductID: product.ID, Quantity: 1,
	}))

	orderRepo := NewOrderRepository(testPool)
	order, err := orderRepo.Place(ctx, user.ID, func(lines []model.CartLine) (*model.Order, error) {
		return &model.Order{
			OrderNumber: "ORD-20260828-0003", UserID: user.ID,
			Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending,
			Subtotal: decimal.NewFromInt(10), TotalAmount: decimal.NewFromInt(10),
			Currency: "USD",
		}, nil
	})
	require.NoError(t, err)

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusShipped))
	first, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ShippedAt)

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusShipped))
	second, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, first.ShippedAt.UTC(), second.ShippedAt.UTC())
}

func TestReviewRepository_CreateRecomputesAggregate(t *testing.T) {
	cleanupTable(t, "reviews", "products", "categories", "users")
	ctx := context.Background()
	product := seedProduct(t, 10)
	repo := NewReviewRepository(testPool)
	productRepo := NewProductRepository(testPool)

	for _, rating := range []int{4, 5, 5} {
		user := seedUser(t)
		require.NoError(t, repo.Create(ctx, &model.Review{
			UserID: user.ID, ProductID: product.ID,
			Rating: rating, IsApproved: true,
		}))
	}

	loaded, err := productRepo.GetByID(ctx, product.ID, false)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.RatingCount)
	require.True(t, decimal.RequireFromString("4.67").Equal(loaded.RatingAverage))

	// Unapproved reviews never move the aggregate.
	hidden := seedUser(t)
	require.NoError(t, repo.Create(ctx, &model.Review{
		UserID: hidden.ID, ProductID: product.ID,
		Rating: 1, IsApproved: false,
	}))
	loaded, err = productRepo.GetByID(ctx, product.ID, false)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.RatingCount)
	require.True(t, decimal.RequireFromString("4.67").Equal(loaded.RatingAverage))
}

func TestReviewRepository_DuplicateReview(t *testing.T) {
	cleanupTable(t, "reviews", "products", "categories", "users")
	ctx := context.Background()
	user := seedUser(t)
	product := seedProduct(t, 10)
	repo := NewReviewRepository(testPool)

	require.NoError(t, repo.Create(ctx, &model.Review{
		UserID: user.ID, ProductID: product.ID, Rating: 4, IsApproved: true,
	}))
	require.ErrorIs(t, repo.Create(ctx, &model.Review{
		UserID: user.ID, ProductID: product.ID, Rating: 5, IsApproved: true,
	}), ErrDuplicateKey)
}
