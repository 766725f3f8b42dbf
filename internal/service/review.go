package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrDuplicateReview = errors.New("product already reviewed")
)

type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository, redisClient *redis.Client) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, productRepo: productRepo, redisClient: redisClient}
}

// Add creates a review and recomputes the product's rating aggregate. The
// verified-purchase flag is frozen at creation from the user's order
// history.
func (s *ReviewService) Add(ctx context.Context, userID, productID uuid.UUID, req dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	product, err := s.productRepo.GetByID(ctx, productID, true)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	verified, err := s.reviewRepo.HasVerifiedPurchase(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("check purchase history: %w", err)
	}

	review := &model.Review{
		UserID:             userID,
		ProductID:          productID,
		Rating:             req.Rating,
		Title:              req.Title,
		Comment:            req.Comment,
		IsVerifiedPurchase: verified,
		IsApproved:         true,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	// The cached product detail carries the old aggregate.
	if s.redisClient != nil {
		s.redisClient.Del(ctx, productCacheKey(productID))
	}

	resp := dto.NewReviewResponse(review)
	return &resp, nil
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]dto.ReviewResponse, error) {
	product, err := s.productRepo.GetByID(ctx, productID, true)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	resp := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, dto.NewReviewResponse(&reviews[i]))
	}
	return resp, nil
}
