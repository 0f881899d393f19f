package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/domain"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("wrong token type")
)

const algorithm = gojose.HS256

// Claims are the custom claims carried next to the registered ones.
type Claims struct {
	TokenType string `json:"token_type"`
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Generator signs and validates HS256 JWTs with a single process-wide key.
type Generator struct {
	key        []byte
	kid        string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	signer     gojose.Signer
	now        func() time.Time
}

// NewGenerator constructs a generator from the loaded configuration.
func NewGenerator(cfg config.Config) (*Generator, error) {
	if len(cfg.JWTSigningKey) == 0 {
		return nil, fmt.Errorf("jwt signing key is empty")
	}

	sum := sha256.Sum256(cfg.JWTSigningKey)
	kid := hex.EncodeToString(sum[:8])

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: algorithm, Key: cfg.JWTSigningKey},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", kid),
	)
	if err != nil {
		return nil, fmt.Errorf("new signer: %w", err)
	}

	return &Generator{
		key:        cfg.JWTSigningKey,
		kid:        kid,
		issuer:     cfg.JWTIssuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		signer:     signer,
		now:        time.Now,
	}, nil
}

// AccessTTL is the lifetime of issued access tokens.
func (g *Generator) AccessTTL() time.Duration { return g.accessTTL }

// GenerateAccessToken produces a signed access token for user.
func (g *Generator) GenerateAccessToken(user domain.User) (string, error) {
	return g.generate(user, TokenTypeAccess, g.accessTTL)
}

// GenerateRefreshToken produces a signed refresh token for user.
func (g *Generator) GenerateRefreshToken(user domain.User) (string, error) {
	return g.generate(user, TokenTypeRefresh, g.refreshTTL)
}

func (g *Generator) generate(user domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := g.now().UTC()
	std := gojwt.Claims{
		ID:        uuid.NewString(),
		Subject:   user.UserID.String(),
		Issuer:    g.issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(ttl)),
	}
	custom := Claims{
		TokenType: tokenType,
		UserID:    user.UserID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	token, err := gojwt.Signed(g.signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}

// ValidateAccessToken verifies an access token and returns its claims.
func (g *Generator) ValidateAccessToken(token string) (*gojwt.Claims, *Claims, error) {
	return g.validate(token, TokenTypeAccess)
}

// ValidateRefreshToken verifies a refresh token and returns its claims.
func (g *Generator) ValidateRefreshToken(token string) (*gojwt.Claims, *Claims, error) {
	return g.validate(token, TokenTypeRefresh)
}

func (g *Generator) validate(token, tokenType string) (*gojwt.Claims, *Claims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{algorithm})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse: %v", ErrInvalidToken, err)
	}

	var std gojwt.Claims
	var custom Claims
	if err := parsed.Claims(g.key, &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("%w: verify: %v", ErrInvalidToken, err)
	}

	if err := std.Validate(gojwt.Expected{Issuer: g.issuer, Time: g.now()}); err != nil {
		return nil, nil, fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}
	if custom.TokenType != tokenType {
		return nil, nil, fmt.Errorf("%w: got %q", ErrWrongTokenUse, custom.TokenType)
	}

	return &std, &custom, nil
}
