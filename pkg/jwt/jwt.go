package jwt

import (
	"errors"
	"time"

	"clinic-dashboard/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in dashboard access tokens.
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

type Claims struct {
	Role    string `json:"role"`
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

type JWTService struct {
	config config.JWTConfig
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{config: cfg}
}

// Enabled reports whether a signing secret is configured.
func (s *JWTService) Enabled() bool {
	return s.config.Secret != ""
}

// GenerateAccessToken issues a token for subject (the presentation host or a user) with role.
func (s *JWTService) GenerateAccessToken(subject, role string) (string, error) {
	if !s.Enabled() {
		return "", errors.New("jwt secret not configured")
	}

	now := time.Now()
	claims := Claims{
		Role:    role,
		TokenID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.config.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
