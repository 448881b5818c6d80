package services

import (
	"errors"
	"fmt"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken covers bad signatures, foreign algorithms or issuers,
// malformed tokens and expired tokens alike.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type CredentialsConfig struct {
	Secret     string
	Issuer     string
	TokenTTL   time.Duration
	BCryptCost int
}

// Credentials hashes passwords and issues/verifies session tokens. It holds
// no per-request state and is safe for concurrent use.
type Credentials struct {
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewCredentials(config CredentialsConfig) *Credentials {
	cost := config.BCryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	ttl := config.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Credentials{
		secret: []byte(config.Secret),
		issuer: config.Issuer,
		ttl:    ttl,
		cost:   cost,
		now:    time.Now,
	}
}

func (c *Credentials) TokenTTL() time.Duration {
	return c.ttl
}

func (c *Credentials) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", invalidInput("password must be at most 72 bytes")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (c *Credentials) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (c *Credentials) IssueToken(user *models.User) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	now := c.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *Credentials) VerifyToken(tokenString string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing uid claim", ErrInvalidToken)
	}

	return claims, nil
}
