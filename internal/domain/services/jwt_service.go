package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"relief-http-service/internal/infrastructure/config"
)

// Operator roles
const (
	RoleVolunteer = "volunteer"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the operator roles
func ValidRole(role string) bool {
	switch role {
	case RoleVolunteer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManage reports whether role may mutate missions and read the audit log
func CanManage(role string) bool {
	return role == RoleManager || role == RoleAdmin
}

// InterfaceJWTService defines the JWT service interface
type InterfaceJWTService interface {
	GenerateToken(subject, role string, ttl time.Duration) (string, error)
	ExtractClaims(tokenString string) (*JWTClaims, error)
}

// JWTService issues and validates operator tokens
type JWTService struct {
	secretKey string
	issuer    string
}

// JWTClaims defines the token claims
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg *config.Config) InterfaceJWTService {
	return &JWTService{
		secretKey: cfg.JWTSecretKey,
		issuer:    cfg.JWTIssuer,
	}
}

// 1 GenerateToken signs a token for subject with role, valid for ttl
func (s *JWTService) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	if !ValidRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()

	claims := &JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// 2 ExtractClaims validates a token and returns its claims
func (s *JWTService) ExtractClaims(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("invalid token issuer")
	}
	if !ValidRole(claims.Role) {
		return nil, errors.New("invalid token role")
	}
	return claims, nil
}
