package auth

import (
	"errors"
	"time"

	"fintab-pos/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the identity provider puts in the token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the authenticated user the claims describe.
func (c *Claims) Identity() models.Identity {
	return models.Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}
}

// Verifier checks HS256 tokens signed with the shared secret.
type Verifier struct {
	key []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{key: []byte(secret)}
}

// GenerateToken signs a token for id. The service only validates tokens;
// this exists for tests and local development.
func (v *Verifier) GenerateToken(id models.Identity, ttl time.Duration) (string, error) {
	claims := &Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}

// ValidateToken checks if a token is fake or expired
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
