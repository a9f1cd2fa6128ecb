package services

import (
	"context"
	"errors"
	"fmt"

	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/token"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// TokenResult is returned by a successful login.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	userRepo   repositories.UserRepository
	tokens     *token.Manager
	bcryptCost int
	// dummyHash is compared against on unknown emails so both login failure paths pay for bcrypt.
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens *token.Manager, bcryptCost int) (*AuthService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("sweetshop-dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hashing: %w", err)
	}
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}, nil
}

// Register creates a regular user.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	return s.create(ctx, email, password, fullName, false)
}

// CreateAdmin creates a user with administrator rights.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, fullName string) (*models.User, error) {
	return s.create(ctx, email, password, fullName, true)
}

func (s *AuthService) create(ctx context.Context, email, password, fullName string, isAdmin bool) (*models.User, error) {
	if email == "" {
		return nil, invalid("email", "must not be empty")
	}
	if password == "" {
		return nil, invalid("password", "must not be empty")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, invalid("password", "must be at most 72 bytes")
	} else if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       fullName,
		IsAdmin:        isAdmin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	log.Ctx(ctx).Info().Uint("user_id", user.ID).Bool("is_admin", isAdmin).Msg("user registered")
	return user, nil
}

// Login checks credentials and issues a bearer token.
// Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Authenticate verifies a bearer token and resolves the current user.
// Admin status comes from the stored user, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (Identity, error) {
	userID, err := s.tokens.Parse(tokenString)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("token rejected")
		return Identity{}, ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Identity{}, ErrUnauthenticated
	} else if err != nil {
		return Identity{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	return Identity{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}, nil
}

// FindByEmail returns the user with exactly this email, or nil when there is none.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// GetUser returns a user by id.
func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	return user, err
}
