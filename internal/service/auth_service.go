package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/domain"
	"github.com/smallbiznis/valora-identity/internal/jwt"
	"github.com/smallbiznis/valora-identity/internal/repository"
)

// RegisterInput is the registration request body.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty,number"`
}

// LoginInput is the credential body shared by login and the token-pair endpoint.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

const (
	msgRegistrationFailed = "Registration unsuccessful"
	msgEmailExists        = "Registration unsuccessful. Email already exists"
	msgNoActiveAccount    = "No active account found with the given credentials"
	msgTokenInvalid       = "Token is invalid or expired"
)

// AuthService implements registration, login and bearer token checks.
type AuthService struct {
	identity  *IdentityService
	jwt       *jwt.Generator
	sessions  repository.SessionStore
	validate  *validator.Validate
	newSessID func() string
	instrumentation
}

// NewAuthService wires dependencies.
func NewAuthService(identity *IdentityService, generator *jwt.Generator, sessions repository.SessionStore, logger *zap.Logger) *AuthService {
	return &AuthService{
		identity:        identity,
		jwt:             generator,
		sessions:        sessions,
		validate:        newValidator(),
		newSessID:       uuid.NewString,
		instrumentation: newInstrumentation(logger),
	}
}

// Register validates input, creates the user with its default organisation
// and returns an access token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Phone = strings.TrimSpace(input.Phone)

	// a blank password is missing, but a non-blank one is stored untrimmed
	check := input
	check.Password = strings.TrimSpace(input.Password)
	fields, err := fieldErrors(s.validate, check)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, err
	}
	if len(fields) > 0 {
		return AuthResult{}, NewError(KindValidation, http.StatusUnprocessableEntity, msgRegistrationFailed).withFields(fields)
	}

	if _, err := s.identity.GetUserByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, errDuplicateEmail(repository.ErrDuplicateEmail)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("check existing user: %w", err)
	}

	user, _, err := s.identity.CreateUser(ctx, NewUser{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			// lost the race against a concurrent registration
			return AuthResult{}, errDuplicateEmail(err)
		case errors.Is(err, ErrEmailRequired):
			return AuthResult{}, NewError(KindValidation, http.StatusUnprocessableEntity, msgRegistrationFailed).
				withFields(map[string]string{"email": "Email is required."})
		}
		span.RecordError(err)
		return AuthResult{}, err
	}

	token, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}

	return AuthResult{AccessToken: token, User: newUserViewModel(user)}, nil
}

// Login verifies credentials, issues an access token and records a session marker.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.identity.VerifyCredentials(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return LoginResult{}, errAuthenticationFailed(err)
		}
		span.RecordError(err)
		return LoginResult{}, err
	}

	token, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		return LoginResult{}, fmt.Errorf("issue access token: %w", err)
	}

	sessionID := s.newSessID()
	if err := s.sessions.Save(ctx, sessionID, user.UserID, s.jwt.AccessTTL()); err != nil {
		// the bearer token alone is sufficient, so a missing marker only gets logged
		s.log().Warn("save session marker", zap.String("user_id", user.UserID.String()), zap.Error(err))
		sessionID = ""
	}

	return LoginResult{
		AuthResult: AuthResult{AccessToken: token, User: newUserViewModel(user)},
		SessionID:  sessionID,
	}, nil
}

// ObtainTokenPair verifies credentials and returns an access and refresh token.
func (s *AuthService) ObtainTokenPair(ctx context.Context, input LoginInput) (TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.ObtainTokenPair")
	defer span.End()

	user, err := s.identity.VerifyCredentials(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return TokenPair{}, NewError(KindAuthentication, http.StatusUnauthorized, msgNoActiveAccount).withCause(err)
		}
		span.RecordError(err)
		return TokenPair{}, err
	}

	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if strings.TrimSpace(refreshToken) == "" {
		return AccessToken{}, NewError(KindValidation, http.StatusBadRequest, "Refresh token is required").
			withFields(map[string]string{"refresh": "This field is required."})
	}

	claims, _, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AccessToken{}, NewError(KindAuthentication, http.StatusUnauthorized, msgTokenInvalid).withCause(err)
	}

	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return AccessToken{}, err
	}

	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		return AccessToken{}, fmt.Errorf("issue access token: %w", err)
	}
	return AccessToken{Access: access}, nil
}

// Authenticate resolves a bearer access token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	claims, _, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return domain.User{}, NewError(KindAuthentication, http.StatusUnauthorized, "Given token not valid for any token type").withCause(err)
	}
	return s.activeUser(ctx, claims.Subject)
}

func (s *AuthService) activeUser(ctx context.Context, subject string) (domain.User, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return domain.User{}, NewError(KindAuthentication, http.StatusUnauthorized, msgTokenInvalid).withCause(err)
	}

	user, err := s.identity.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, NewError(KindAuthentication, http.StatusUnauthorized, "User not found").withCause(err)
		}
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, NewError(KindAuthentication, http.StatusUnauthorized, "User is inactive")
	}
	return user, nil
}

func errDuplicateEmail(cause error) *Error {
	return NewError(KindDuplicate, http.StatusUnprocessableEntity, msgEmailExists).
		withCause(cause).
		withFields(map[string]string{"email": "User with this email already exists."})
}
