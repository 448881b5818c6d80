package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "middleware-test-secret"
	testIssuer = "task-tracker"
	cookieName = "token"
)

func newTestCredentials() *services.Credentials {
	return services.NewCredentials(services.CredentialsConfig{
		Secret:     testSecret,
		Issuer:     testIssuer,
		TokenTTL:   time.Hour,
		BCryptCost: bcrypt.MinCost,
	})
}

func createTestToken(t *testing.T) string {
	t.Helper()
	token, err := newTestCredentials().IssueToken(&models.User{ID: 42, Email: "alice@example.com"})
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}
	return token
}

func createExpiredToken(t *testing.T) string {
	t.Helper()
	claims := services.Claims{
		UserID: 42,
		Email:  "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal("Failed to create expired token:", err)
	}
	return token
}

func newGuardRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	guard := middleware.NewSessionGuard(newTestCredentials(), cookieName)
	identityHandler := func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": identity.UserID, "email": identity.Email})
	}

	router := gin.New()
	router.GET("/api", guard.RequireAPIAuth(), identityHandler)
	router.GET("/page", guard.RequirePageAuth(), identityHandler)
	router.GET("/optional", guard.OptionalAuth(), identityHandler)
	return router
}

func serve(router *gin.Engine, path, header, cookie string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRequireAPIAuth_NoToken(t *testing.T) {
	w := serve(newGuardRouter(), "/api", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "authentication required" {
		t.Errorf("Unexpected error body: %v", body)
	}
}

func TestRequireAPIAuth_ValidBearer(t *testing.T) {
	w := serve(newGuardRouter(), "/api", "Bearer "+createTestToken(t), "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["id"] != float64(42) || body["email"] != "alice@example.com" {
		t.Errorf("Unexpected identity: %v", body)
	}
}

func TestRequireAPIAuth_CookieFallback(t *testing.T) {
	w := serve(newGuardRouter(), "/api", "", createTestToken(t))

	if w.Code != http.StatusOK {
		t.Errorf("Expected cookie to authenticate API request, got %d", w.Code)
	}
}

func TestRequireAPIAuth_HeaderWinsOverCookie(t *testing.T) {
	w := serve(newGuardRouter(), "/api", "Bearer garbage", createTestToken(t))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected an invalid header to be rejected even with a valid cookie, got %d", w.Code)
	}
}

func TestRequireAPIAuth_NonBearerHeader(t *testing.T) {
	w := serve(newGuardRouter(), "/api", "Basic dXNlcjpwYXNz", createTestToken(t))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestRequireAPIAuth_RejectsBadTokensIdenticallyViaHeaderAndCookie(t *testing.T) {
	valid := createTestToken(t)
	tests := []struct {
		name  string
		token string
	}{
		{"expired", createExpiredToken(t)},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"garbage", "invalid_token"},
	}

	router := newGuardRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viaHeader := serve(router, "/api", "Bearer "+tt.token, "")
			viaCookie := serve(router, "/api", "", tt.token)

			if viaHeader.Code != http.StatusUnauthorized || viaCookie.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 for both, got header=%d cookie=%d", viaHeader.Code, viaCookie.Code)
			}
			if viaHeader.Body.String() != viaCookie.Body.String() {
				t.Errorf("Expected identical bodies, got header=%s cookie=%s", viaHeader.Body.String(), viaCookie.Body.String())
			}
		})
	}
}

func TestRequirePageAuth(t *testing.T) {
	router := newGuardRouter()

	tests := []struct {
		name     string
		cookie   string
		header   string
		wantCode int
	}{
		{"no cookie", "", "", http.StatusFound},
		{"expired cookie", createExpiredToken(t), "", http.StatusFound},
		{"header is not enough", "", "Bearer " + createTestToken(t), http.StatusFound},
		{"valid cookie", createTestToken(t), "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, "/page", tt.header, tt.cookie)

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode == http.StatusFound && w.Header().Get("Location") != middleware.LoginPath {
				t.Errorf("Expected redirect to %s, got %q", middleware.LoginPath, w.Header().Get("Location"))
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	router := newGuardRouter()

	anonymous := serve(router, "/optional", "", "")
	if anonymous.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, anonymous.Code)
	}
	if body := decodeBody(t, anonymous); body["user"] != nil {
		t.Errorf("Expected no identity, got %v", body)
	}

	invalid := serve(router, "/optional", "", "invalid_token")
	if invalid.Code != http.StatusOK {
		t.Errorf("Expected an invalid cookie to be ignored, got %d", invalid.Code)
	}

	signedIn := serve(router, "/optional", "", createTestToken(t))
	if body := decodeBody(t, signedIn); body["id"] != float64(42) {
		t.Errorf("Expected identity from cookie, got %v", body)
	}
}

func TestCurrentIdentity_Absent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := middleware.CurrentIdentity(c); ok {
		t.Error("Expected no identity on a fresh context")
	}

	c.Set(middleware.ContextUserID, "not-an-int")
	if _, ok := middleware.CurrentIdentity(c); ok {
		t.Error("Expected a malformed user id to be ignored")
	}
}
