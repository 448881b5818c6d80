package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newCredentials(secret string) *Credentials {
	return NewCredentials(CredentialsConfig{
		Secret:     secret,
		Issuer:     "task-tracker",
		TokenTTL:   time.Hour,
		BCryptCost: bcrypt.MinCost,
	})
}

func TestNewCredentials_Defaults(t *testing.T) {
	c := NewCredentials(CredentialsConfig{Secret: "s", BCryptCost: 99})

	assert.Equal(t, bcrypt.DefaultCost, c.cost)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL())
}

func TestHashPassword(t *testing.T) {
	c := newCredentials("secret")

	hash, err := c.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, c.CheckPassword("correct horse", hash))
	assert.False(t, c.CheckPassword("wrong horse", hash))
	assert.False(t, c.CheckPassword("correct horse", "not-a-hash"))
}

func TestHashPassword_TooLong(t *testing.T) {
	c := newCredentials("secret")

	_, err := c.HashPassword(strings.Repeat("x", 73))

	assert.True(t, errors.Is(err, ErrInvalidInput), "expected invalid input, got %v", err)
}

func TestIssueAndVerifyToken(t *testing.T) {
	c := newCredentials("secret")
	user := &models.User{ID: 42, Email: "alice@example.com"}

	token, err := c.IssueToken(user)
	require.NoError(t, err)

	claims, err := c.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "task-tracker", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueToken_UniqueIDs(t *testing.T) {
	c := newCredentials("secret")
	user := &models.User{ID: 1, Email: "a@example.com"}

	first, err := c.IssueToken(user)
	require.NoError(t, err)
	second, err := c.IssueToken(user)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyToken_Rejects(t *testing.T) {
	c := newCredentials("secret")
	user := &models.User{ID: 7, Email: "bob@example.com"}

	expiredIssuer := newCredentials("secret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.IssueToken(user)
	require.NoError(t, err)

	otherSecret, err := newCredentials("another-secret").IssueToken(user)
	require.NoError(t, err)

	foreign := NewCredentials(CredentialsConfig{Secret: "secret", Issuer: "someone-else", BCryptCost: bcrypt.MinCost})
	otherIssuer, err := foreign.IssueToken(user)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "task-tracker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "task-tracker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "task-tracker"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	valid, err := c.IssueToken(user)
	require.NoError(t, err)
	tampered := valid[:len(valid)-2] + "xx"

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"wrong algorithm", hs512},
		{"missing uid", noUID},
		{"missing expiry", noExpiry},
		{"tampered signature", tampered},
		{"malformed", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := c.VerifyToken(tt.token)
			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, ErrInvalidToken), "expected ErrInvalidToken, got %v", err)
		})
	}
}
