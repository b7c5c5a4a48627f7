package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skillup/examflow-backend/internal/response"
	"github.com/skillup/examflow-backend/internal/service"
)

// ContextKeyClaims is the Gin context key for validated JWT claims.
const ContextKeyClaims = "claims"

// tokenExtractor pulls the raw JWT out of a request. Browsers cannot attach
// headers to WebSocket upgrades, so those routes read a query param instead.
type tokenExtractor func(c *gin.Context) string

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func queryToken(c *gin.Context) string {
	return c.Query("token")
}

// RequireUserJWT admits only exam-taker tokens from the Authorization header.
func RequireUserJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, service.TokenTypeUser, bearerToken, response.ErrUserAccessOnly)
}

// RequireAdminJWT admits only admin tokens from the Authorization header.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, service.TokenTypeAdmin, bearerToken, response.ErrAdminAccessOnly)
}

// RequireAdminWSAuth admits admin tokens passed as ?token= on WebSocket
// upgrade requests.
func RequireAdminWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, service.TokenTypeAdmin, queryToken, response.ErrAdminAccessOnly)
}

func requireToken(authService *service.AuthService, want service.TokenType, extract tokenExtractor, wrongType response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validate(authService, extract(c))
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, errNoToken) {
				code = response.ErrTokenRequired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		if claims.TokenType != want {
			response.AbortFail(c, http.StatusForbidden, wrongType)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

var errNoToken = errors.New("no token in request")

func validate(authService *service.AuthService, tokenStr string) (*service.Claims, error) {
	if tokenStr == "" {
		return nil, errNoToken
	}
	return authService.ValidateToken(tokenStr)
}

// GetClaims returns the claims set by the auth middleware, or nil when the
// route is unauthenticated.
func GetClaims(c *gin.Context) *service.Claims {
	val, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}
