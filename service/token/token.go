package token

import (
	"strconv"
	"time"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// Identity is the verified content of a bearer token.
type Identity struct {
	UserID   int64
	Email    string
	FullName string
	IsAdmin  bool
}

type userClaims struct {
	Email    string `json:"email"`
	FullName string `json:"name"`
	IsAdmin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Service issues and verifies signed HS256 bearer tokens.
type Service struct {
	secret []byte
}

func New(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Issue signs a token for the user.
func (s *Service) Issue(user model.User) (string, error) {
	now := time.Now()

	claims := userClaims{
		Email:    user.Email,
		FullName: user.FullName,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token. Any failure, including an
// unexpected signing method or expiry, is model.ErrUnauthorized.
func (s *Service) Verify(raw string) (Identity, error) {
	claims := &userClaims{}

	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, model.ErrUnauthorized
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, model.ErrUnauthorized
	}

	return Identity{
		UserID:   id,
		Email:    claims.Email,
		FullName: claims.FullName,
		IsAdmin:  claims.IsAdmin,
	}, nil
}
