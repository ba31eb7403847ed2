package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/response"
	"go.uber.org/zap"
)

var ErrInvalidToken = errors.New("invalid token")

// Context keys for session information
const (
	ContextKeyUserID    = "user_id"
	ContextKeyEmail     = "email"
	ContextKeyTokenID   = "token_id"
	ContextKeyExpiresAt = "expires_at"
)

// RevocationChecker reports whether a token id was revoked by logout
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTConfig holds configuration for JWT middleware
type JWTConfig struct {
	Secret string
	// SkipPaths bypass validation entirely
	SkipPaths   []string
	Revocations RevocationChecker
}

// JWTMiddleware validates bearer tokens and injects the session into the gin context
func JWTMiddleware(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range config.SkipPaths {
			if c.Request.URL.Path == path {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Authorization header is required"))
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) == len(bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid authorization header format"))
			return
		}
		tokenString := authHeader[len(bearerPrefix):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(config.Secret), nil
		}, jwt.WithExpirationRequired())
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.ErrCodeSessionExpired, "Session has expired"))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid access token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid token claims"))
			return
		}

		userID, _ := claims["user_id"].(string)
		email, _ := claims["email"].(string)
		if userID == "" || email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Token is missing user claims"))
			return
		}
		tokenID, _ := claims["jti"].(string)
		exp, _ := claims.GetExpirationTime()

		if config.Revocations != nil && tokenID != "" {
			revoked, err := config.Revocations.IsRevoked(c.Request.Context(), tokenID)
			if err != nil {
				logger.Get().WithContext(c.Request.Context()).Error("revocation check failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.ServiceUnavailable(""))
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Session has been signed out"))
				return
			}
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyEmail, email)
		c.Set(ContextKeyTokenID, tokenID)
		if exp != nil {
			c.Set(ContextKeyExpiresAt, exp.Time)
		}

		c.Next()
	}
}

// GetUserID extracts user ID from gin context
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}

// GetEmail extracts email from gin context
func GetEmail(c *gin.Context) (string, bool) {
	email := c.GetString(ContextKeyEmail)
	return email, email != ""
}

// GetTokenID extracts the jti from gin context
func GetTokenID(c *gin.Context) string {
	return c.GetString(ContextKeyTokenID)
}

// GetExpiresAt extracts the token expiry from gin context
func GetExpiresAt(c *gin.Context) time.Time {
	return c.GetTime(ContextKeyExpiresAt)
}
