package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/internal/validator"
	"launchpad_backend/pkg/apperrors"
)

type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type AuthServiceImpl struct {
	admins    repositories.AdminRepository
	tokens    *auth.TokenIssuer
	validator *validator.Validator
}

func NewAuthService(admins repositories.AdminRepository, tokens *auth.TokenIssuer, v *validator.Validator) AuthService {
	return &AuthServiceImpl{admins: admins, tokens: tokens, validator: v}
}

func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	admin, err := s.admins.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.DatabaseError(err)
	}
	if !admin.IsActive || !auth.CheckPasswordHash(req.Password, admin.PasswordHash) {
		logger.CtxWarn(ctx, "admin login refused", "admin_id", admin.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(admin.ID, admin.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.admins.TouchLastLogin(ctx, admin.ID); err != nil {
		logger.CtxWithError(ctx, "failed to record admin login", err, "admin_id", admin.ID)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		Role:        admin.Role,
	}, nil
}

// EnsureAdmin creates the bootstrap admin account on first start.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	_, err := s.admins.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrAdminNotFound) {
		return err
	}

	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.AdminUser{
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         models.AdminRoleAdmin,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", "email", email)
	return nil
}
