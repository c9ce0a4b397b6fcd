package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/booklook/booklook/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	// TokenExpiry is how long JWT tokens are valid.
	TokenExpiry = 7 * 24 * time.Hour // 7 days
)

// JWTClaims represents the claims in a JWT token.
type JWTClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Service validates tokens issued by the authentication service. It never
// handles passwords.
type Service struct {
	db        *bun.DB
	jwtSecret []byte
}

// NewService creates a new auth service.
func NewService(db *bun.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// GenerateToken signs a token for the user. Tokens are normally minted by the
// authentication service; this exists for tooling and tests.
func (s *Service) GenerateToken(userID int) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID < 1 {
		return nil, errors.New("token has no user")
	}

	return claims, nil
}

// RetrieveUser looks up the user a token was issued for.
func (s *Service) RetrieveUser(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}
