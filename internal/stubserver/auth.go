package stubserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/itqan-app/itqan-console/pkg/response"
)

const csrfCookieName = "XSRF-TOKEN"
const csrfHeaderName = "X-CSRF-Token"

type sessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// MintSessionToken issues a short-lived operator session token the way the
// real platform would after login.
func MintSessionToken(secret, subject, name string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseSessionToken(secret, tokenString string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

const contextActorKey = "actor"

// sessionRequired rejects requests without a valid bearer session token.
func sessionRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Fail(c, http.StatusUnauthorized, "session expired")
			c.Abort()
			return
		}
		claims, err := parseSessionToken(secret, parts[1])
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "session expired")
			c.Abort()
			return
		}
		c.Set(contextActorKey, claims.Name)
		c.Next()
	}
}

func actorName(c *gin.Context) string {
	if v, ok := c.Get(contextActorKey); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}

// csrfGuard issues tokens on the bootstrap endpoint and verifies the
// dedicated header on every mutating request.
type csrfGuard struct {
	mu     sync.Mutex
	issued map[string]bool
}

func newCSRFGuard() *csrfGuard {
	return &csrfGuard{issued: make(map[string]bool)}
}

// Bootstrap is the side-effect-only GET that makes a token available via
// cookie.
func (g *csrfGuard) Bootstrap(c *gin.Context) {
	token := uuid.NewString()
	g.mu.Lock()
	g.issued[token] = true
	g.mu.Unlock()

	c.SetCookie(csrfCookieName, token, 3600, "/", "", false, false)
	c.Status(http.StatusNoContent)
}

// Require verifies the token header on mutating requests.
func (g *csrfGuard) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(csrfHeaderName)
		g.mu.Lock()
		valid := token != "" && g.issued[token]
		g.mu.Unlock()
		if !valid {
			response.Fail(c, http.StatusForbidden, "CSRF token mismatch")
			c.Abort()
			return
		}
		c.Next()
	}
}
