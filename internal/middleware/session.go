package middleware

import (
	"errors"
	"net/http"
	"strings"

	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"

	LoginPath = "/auth"
)

var errMissingToken = errors.New("missing token")

type TokenVerifier interface {
	VerifyToken(token string) (*services.Claims, error)
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID int64
	Email  string
}

// SessionGuard authenticates requests from a bearer token or the session
// cookie. API routes answer 401; page routes redirect to the login page.
type SessionGuard struct {
	verifier   TokenVerifier
	cookieName string
}

func NewSessionGuard(verifier TokenVerifier, cookieName string) *SessionGuard {
	return &SessionGuard{verifier: verifier, cookieName: cookieName}
}

func (g *SessionGuard) Authenticate(token string) (*Identity, error) {
	if token == "" {
		return nil, errMissingToken
	}
	claims, err := g.verifier.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// RequireAPIAuth prefers the Authorization header and falls back to the
// session cookie when the header is absent.
func (g *SessionGuard) RequireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			if c.GetHeader("Authorization") != "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must use Bearer token"})
				return
			}
			token = g.cookieToken(c)
		}

		identity, err := g.Authenticate(token)
		if err != nil {
			message := "invalid or expired token"
			if errors.Is(err, errMissingToken) {
				message = "authentication required"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

func (g *SessionGuard) RequirePageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := g.Authenticate(g.cookieToken(c))
		if err != nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid session cookie is present
// and never rejects the request.
func (g *SessionGuard) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, err := g.Authenticate(g.cookieToken(c)); err == nil {
			setIdentity(c, identity)
		}
		c.Next()
	}
}

func (g *SessionGuard) cookieToken(c *gin.Context) string {
	token, err := c.Cookie(g.cookieName)
	if err != nil {
		return ""
	}
	return token
}

func CurrentIdentity(c *gin.Context) (Identity, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return Identity{}, false
	}
	id, ok := userID.(int64)
	if !ok {
		return Identity{}, false
	}
	return Identity{UserID: id, Email: c.GetString(ContextUserEmail)}, true
}

func setIdentity(c *gin.Context, identity *Identity) {
	c.Set(ContextUserID, identity.UserID)
	c.Set(ContextUserEmail, identity.Email)
}

func extractBearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
