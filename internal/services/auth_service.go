package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/mail"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"gorm.io/gorm"
)

// AuthDeps groups the collaborators of AuthService
type AuthDeps struct {
	Users       repository.UserRepository
	Teams       repository.TeamRepository
	Tokens      *auth.TokenManager
	Revocations *auth.Registry
	Cache       *cache.Cache
	Mailer      mail.Mailer
	Events      events.Dispatcher
	FrontendURL string
}

// AuthService handles authentication related business logic.
type AuthService struct {
	AuthDeps
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{AuthDeps: deps, now: time.Now}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
	TeamID   *uint64
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token  string
	Claims *auth.Claims
	User   *models.User
}

func profileKey(userID uint64) string {
	return fmt.Sprintf("user:%d:profile", userID)
}

func userKeys(userID uint64) string {
	return fmt.Sprintf("user:%d:*", userID)
}

// Register creates a new user. Role and team are honored only when actor is
// an admin; everyone else registers as a plain user.
func (s *AuthService) Register(ctx context.Context, actor *access.Caller, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.Users.FindConflicting(ctx, email, username, 0); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.Internal(fmt.Errorf("failed to check user: %w", err))
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apierrors.Internal(err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	if actor != nil && actor.IsAdmin() {
		if input.Role.Valid() {
			user.Role = input.Role
		}
		if input.TeamID != nil {
			if _, err := s.Teams.FindByID(ctx, *input.TeamID, false); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrTeamNotFound
				}
				return nil, apierrors.Internal(fmt.Errorf("failed to find team: %w", err))
			}
			user.TeamID = input.TeamID
		}
	}

	if err := s.Users.Create(ctx, user); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	s.Events.Submit("welcome-email", func(ctx context.Context) error {
		subject, html, err := mail.WelcomeEmail(user.Username, s.FrontendURL)
		if err != nil {
			return err
		}
		return s.Mailer.Send(ctx, user.Email, subject, html)
	})

	return user, nil
}

// Login verifies credentials, stamps the login time and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.InvalidCredentials()
		}
		return nil, apierrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apierrors.InvalidCredentials()
	}

	now := s.now()
	if err := s.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to record login: %w", err))
	}
	user.LastLogin = &now
	s.Cache.DeletePattern(ctx, userKeys(user.ID))

	token, claims, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, apierrors.Internal(err)
	}

	return &LoginResult{Token: token, Claims: claims, User: user}, nil
}

// Logout revokes the presented token and drops the user's cached entries.
func (s *AuthService) Logout(ctx context.Context, userID uint64, claims *auth.Claims) {
	if claims != nil {
		s.Revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime())
	}
	s.Cache.DeletePattern(ctx, userKeys(userID))
}

// Authenticate resolves a bearer token to its user. Revocation is checked on
// every call, so a cached response is never served to a revoked token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, ErrTokenRequired
	}

	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, nil, ErrTokenInvalid
	}

	if s.Revocations.IsRevoked(ctx, claims.ID) {
		return nil, nil, ErrTokenRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, ErrTokenInvalid
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTokenUser
		}
		return nil, nil, apierrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	return user, claims, nil
}

// GetProfile returns the user, served from cache when possible.
func (s *AuthService) GetProfile(ctx context.Context, userID uint64) (*models.User, error) {
	var cached models.User
	if s.Cache.Get(ctx, profileKey(userID), &cached) {
		return &cached, nil
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apierrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	s.Cache.Set(ctx, profileKey(userID), user, constants.ProfileCacheTTL)
	return user, nil
}

// UpdateProfileInput holds the profile fields a user may change.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

// UpdateProfile changes the caller's username or email.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, input UpdateProfileInput) (*models.User, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apierrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	if input.Username != nil && strings.TrimSpace(*input.Username) != "" {
		user.Username = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}

	if _, err := s.Users.FindConflicting(ctx, user.Email, user.Username, user.ID); err == nil {
		return nil, ErrProfileTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.Internal(fmt.Errorf("failed to check user: %w", err))
	}

	if err := s.Users.Update(ctx, user); err != nil {
		return nil, apierrors.Internal(fmt.Errorf("failed to update user: %w", err))
	}

	s.Cache.DeletePattern(ctx, userKeys(user.ID))
	return user, nil
}
