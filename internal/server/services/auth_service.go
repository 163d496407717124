package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/storage"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/intelvis/intelvis/pkg/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

type AuthService struct {
	userRepo     *storage.UserRepository
	emailService *EmailService
	jwtSecret    string
	sessionTTL   time.Duration
	bcryptCost   int
	now          func() time.Time
}

func NewAuthService(userRepo *storage.UserRepository, emailService *EmailService, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		emailService: emailService,
		jwtSecret:    cfg.JWTSecret,
		sessionTTL:   cfg.SessionTTL,
		bcryptCost:   cfg.BcryptCost,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, ErrInvalidPassword
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	go func() {
		if err := s.emailService.SendWelcomeEmail(user.Email); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to send welcome email")
		}
	}()

	return user, nil
}

// Login checks the credentials and issues a session token. Unknown email and
// wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// UserFromToken validates a session token and loads its user. A user deleted
// after the token was issued is treated like a bad token.
func (s *AuthService) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims, err := utils.ValidateJWT(token, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidSession
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidSession
	}
	return user, nil
}

func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(email))
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAll(ctx)
}
