package services

import (
	"context"
	"strings"

	"sunar-backend/internal/auth"
	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
	"sunar-backend/internal/repositories"
)

type UserService struct {
	UserRepo   *repositories.UserRepository
	JWTManager *auth.JWTManager
}

func NewUserService(userRepo *repositories.UserRepository, jwtManager *auth.JWTManager) *UserService {
	return &UserService{UserRepo: userRepo, JWTManager: jwtManager}
}

func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.ShopName == "" {
		return nil, billing.Validationf("shop name is required")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, billing.Validationf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, billing.Validationf("password must be at least 8 characters")
	}

	existing, err := s.UserRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, billing.Validationf("an account with email %s already exists", req.Email)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ShopName:     req.ShopName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Address:      req.Address,
		GSTNo:        req.GSTNo,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: user}, nil
}

func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.UserRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, billing.Forbiddenf("invalid email or password")
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: user}, nil
}

func (s *UserService) GetProfile(ctx context.Context, ownerID int64) (*models.User, error) {
	user, err := s.UserRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, billing.NotFoundf("user %d not found", ownerID)
	}
	return user, nil
}
