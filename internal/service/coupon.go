package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var ErrCouponExists = errors.New("coupon code already exists")

type CouponService struct {
	couponRepo repository.CouponRepository
}

func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo}
}

// Lookup resolves a code to a currently-valid coupon.
func (s *CouponService) Lookup(ctx context.Context, code string) (*dto.CouponResponse, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil || !coupon.IsValid(time.Now()) {
		return nil, ErrCouponInvalid
	}
	resp := dto.NewCouponResponse(coupon)
	return &resp, nil
}

func (s *CouponService) Create(ctx context.Context, req dto.CreateCouponRequest) (*dto.CouponResponse, error) {
	coupon := &model.Coupon{
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		UsageLimit:     req.UsageLimit,
		IsActive:       true,
		ValidFrom:      time.Now(),
		ValidUntil:     req.ValidUntil,
	}
	if req.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = decimal.NullDecimal{Decimal: *req.MaxDiscountAmount, Valid: true}
	}
	if req.ValidFrom != nil {
		coupon.ValidFrom = *req.ValidFrom
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCouponExists
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	resp := dto.NewCouponResponse(coupon)
	return &resp, nil
}
