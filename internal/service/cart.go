package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrVariantNotFound  = errors.New("product variant not found")
	ErrVariantMismatch  = errors.New("variant does not belong to product")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

// AddItem validates the product (and variant, when given) and merges the
// quantity into any existing line for the same pair.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartResponse, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID, true)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.VariantID != nil {
		variant, err := s.productRepo.GetVariant(ctx, *req.VariantID)
		if err != nil {
			return nil, fmt.Errorf("get variant: %w", err)
		}
		if variant == nil || !variant.IsActive {
			return nil, ErrVariantNotFound
		}
		if variant.ProductID != req.ProductID {
			return nil, ErrVariantMismatch
		}
	}

	line := &model.CartLine{
		UserID:    userID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	}
	if err := s.cartRepo.Upsert(ctx, line); err != nil {
		return nil, fmt.Errorf("add cart line: %w", err)
	}
	return s.Snapshot(ctx, userID)
}

// SetQuantity replaces the line's quantity; zero or less removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*dto.CartResponse, error) {
	var err error
	if quantity <= 0 {
		err = s.cartRepo.Delete(ctx, userID, lineID)
	} else {
		err = s.cartRepo.UpdateQuantity(ctx, userID, lineID, quantity)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart line: %w", err)
	}
	return s.Snapshot(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*dto.CartResponse, error) {
	if err := s.cartRepo.Delete(ctx, userID, lineID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("delete cart line: %w", err)
	}
	return s.Snapshot(ctx, userID)
}

// Snapshot prices the cart against the live catalog. Totals are computed
// here, never stored.
func (s *CartService) Snapshot(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	resp := dto.NewCartResponse(lines)
	return &resp, nil
}
