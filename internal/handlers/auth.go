package handlers

import (
	"net/http"
	"time"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CookieSettings controls the session cookie written on login. Cross-site
// mode needs SameSite=None, which browsers only accept on Secure cookies.
type CookieSettings struct {
	Name       string
	CrossSite  bool
	Production bool
	MaxAge     time.Duration
}

func (s CookieSettings) sameSite() http.SameSite {
	if s.CrossSite {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (s CookieSettings) secure() bool {
	return s.CrossSite || s.Production
}

type AuthHandler struct {
	authService services.AuthService
	cookies     CookieSettings
	logger      zerolog.Logger
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(authService services.AuthService, cookies CookieSettings, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookie(c, session.Token, int(h.cookies.MaxAge.Seconds()))
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.authService.Me(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user.Summary())
}

// Logout clears the session cookie and sends the browser back to the login
// page. It needs no valid session.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookies.sameSite())
	c.SetCookie(h.cookies.Name, value, maxAge, "/", "", h.cookies.secure(), true)
}
