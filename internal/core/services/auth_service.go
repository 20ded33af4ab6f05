package services

import (
	"errors"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

type AuthService interface {
	GenerateToken(identity domain.Identity) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type Claims struct {
	UserID domain.UserID   `json:"user_id"`
	Email  string          `json:"email,omitempty"`
	Role   domain.UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret      []byte
	issuer         string
	accessTokenTTL time.Duration
}

func NewAuthService(jwtSecret, issuer string, accessTokenTTL time.Duration) AuthService {
	return &authService{
		jwtSecret:      []byte(jwtSecret),
		issuer:         issuer,
		accessTokenTTL: accessTokenTTL,
	}
}

func (s *authService) GenerateToken(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(identity.UserID),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	var opts []jwt.ParserOption
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	// tokens minted elsewhere may only carry sub
	if claims.UserID == "" {
		claims.UserID = domain.UserID(claims.Subject)
	}
	if claims.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
