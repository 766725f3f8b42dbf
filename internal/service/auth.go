package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
	"github.com/tarulabs/taru-api/internal/token"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type AuthService struct {
	userRepo  repository.UserRepository
	authority *token.Authority
}

func NewAuthService(userRepo repository.UserRepository, authority *token.Authority) *AuthService {
	return &AuthService{userRepo: userRepo, authority: authority}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}
	if existing, err := s.userRepo.GetByUsername(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent register can still lose the race to the unique index.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueResponse(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	return s.issueResponse(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.AuthResponse, error) {
	user, pair, err := s.authority.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return pairResponse(user, pair), nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.authority.Revoke(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes the active session so old tokens stop working.
func (s *AuthService) ChangePassword(ctx context.Context, user *model.User, req dto.ChangePasswordRequest) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.authority.Revoke(ctx, user.ID)
}

func (s *AuthService) issueResponse(ctx context.Context, user *model.User) (*dto.AuthResponse, error) {
	pair, err := s.authority.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return pairResponse(user, pair), nil
}

func pairResponse(user *model.User, pair *token.Pair) *dto.AuthResponse {
	return &dto.AuthResponse{
		AuthToken:        pair.AuthToken,
		AuthExpiresAt:    pair.AuthExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             dto.NewUserResponse(user),
	}
}
