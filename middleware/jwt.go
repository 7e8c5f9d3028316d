package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token roles.
const (
	// RoleService is held by gameplay servers reporting events.
	RoleService = "service"
	// RolePlayer is held by game clients; the subject is the player id.
	RolePlayer = "player"
)

// Issuer is stamped into and required from every token.
const Issuer = "questengine"

// clockSkew tolerated between the token minter and this service.
const clockSkew = 30 * time.Second

var ErrUnknownRole = errors.New("token role is not recognized")

// Claims is the JWT payload. The subject names the caller.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func knownRole(role string) bool { return role == RoleService || role == RolePlayer }

// GenerateToken signs an HS256 token for subject. Used by operators to mint
// gameplay-server credentials and by tests.
func GenerateToken(subject, role, secret string, ttl time.Duration) (string, error) {
	if !knownRole(role) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature, issuer, expiry, subject and role.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if !knownRole(claims.Role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, claims.Role)
	}
	return claims, nil
}
