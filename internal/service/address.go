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

var ErrAddressNotFound = errors.New("address not found")

type AddressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, req dto.AddressRequest) (*dto.AddressResponse, error) {
	address := addressFromRequest(userID, req)
	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	resp := dto.NewAddressResponse(address)
	return &resp, nil
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]dto.AddressResponse, error) {
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	resp := make([]dto.AddressResponse, 0, len(addresses))
	for i := range addresses {
		resp = append(resp, dto.NewAddressResponse(&addresses[i]))
	}
	return resp, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, req dto.AddressRequest) (*dto.AddressResponse, error) {
	existing, err := s.addressRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if existing == nil {
		return nil, ErrAddressNotFound
	}

	address := addressFromRequest(userID, req)
	address.ID = id
	address.CreatedAt = existing.CreatedAt
	if err := s.addressRepo.Update(ctx, address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("update address: %w", err)
	}
	resp := dto.NewAddressResponse(address)
	return &resp, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.addressRepo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAddressNotFound
		}
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

func addressFromRequest(userID uuid.UUID, req dto.AddressRequest) *model.Address {
	return &model.Address{
		UserID:       userID,
		Type:         req.Type,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Company:      req.Company,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		Phone:        req.Phone,
		IsDefault:    req.IsDefault,
	}
}
