package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"modcheck/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID    = "user_id"
	ctxModerator = "moderator"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify an account. Moderator is set for moderators and root accounts.
type Claims struct {
	Moderator bool `json:"mod"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed token for userID.
func GenerateToken(secret []byte, userID string, moderator bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Moderator: moderator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    config.ModeratorTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.ModeratorTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates a token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.ModeratorTokenIssuer),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so the token query parameter is accepted as well.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[len("Bearer "):]
	}
	return c.Query("token")
}

func (h *Handler) authenticate(c *gin.Context) (*Claims, bool) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return nil, false
	}
	claims, err := ParseToken(h.JWTSecret, tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return nil, false
	}
	c.Set(ctxUserID, claims.Subject)
	c.Set(ctxModerator, claims.Moderator)
	return claims, true
}

// RequireUser accepts any valid token.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireModerator accepts only tokens issued to moderators.
func (h *Handler) RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := h.authenticate(c)
		if !ok {
			return
		}
		if !claims.Moderator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Moderator access required"})
			return
		}
		c.Next()
	}
}
