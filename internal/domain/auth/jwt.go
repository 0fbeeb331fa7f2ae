// Package auth validates the access tokens issued by the identity provider
// and turns them into the caller identity used by every request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "stockflow/internal/core/context"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "stockflow",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID          string   `json:"uid"`
	CompanyID       string   `json:"cid"`
	Email           string   `json:"email,omitempty"`
	Roles           []string `json:"roles,omitempty"`
	Permissions     []string `json:"perms,omitempty"`
	BusinessUnitID  string   `json:"bu"`
	BusinessUnitIDs []string `json:"bus,omitempty"`
	IsAdmin         bool     `json:"adm,omitempty"`
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &JWTService{config: config, parser: jwt.NewParser(opts...)}
}

// GenerateAccessToken signs a token for user. Tokens are normally minted by
// the identity provider; the server uses this for development and tests.
func (s *JWTService) GenerateAccessToken(user *appctx.UserContext) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:          user.UserID,
		CompanyID:       user.CompanyID,
		Email:           user.Email,
		Roles:           user.Roles,
		Permissions:     user.Permissions,
		BusinessUnitID:  user.BusinessUnitID,
		BusinessUnitIDs: user.BusinessUnitIDs,
		IsAdmin:         user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates JWT and returns user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" || claims.CompanyID == "" {
		return nil, errors.New("token lacks user or company")
	}

	return &appctx.UserContext{
		UserID:          claims.UserID,
		CompanyID:       claims.CompanyID,
		Email:           claims.Email,
		Roles:           claims.Roles,
		Permissions:     claims.Permissions,
		IsAdmin:         claims.IsAdmin,
		BusinessUnitID:  claims.BusinessUnitID,
		BusinessUnitIDs: claims.BusinessUnitIDs,
	}, nil
}
