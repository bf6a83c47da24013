package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"grant-store/internal/platform/clock"
	"grant-store/internal/platform/logging"
)

const defaultTokenTTL = time.Hour

// OperatorClaims identify whoever is calling the admin API.
type OperatorClaims struct {
	jwt.RegisteredClaims
}

// AuthToken signs and verifies operator tokens for the admin API.
type AuthToken struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	clock     clock.Clock
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey, issuer string, ttl time.Duration, clk clock.Clock) (*AuthToken, error) {
	if secretKey == "" {
		return nil, errors.New("auth token secret is empty")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
		clock:     clock.OrSystem(clk),
	}, nil
}

// GenerateToken issues a JWT for the operator.
func (at *AuthToken) GenerateToken(operator string) (string, error) {
	if operator == "" {
		return "", errors.New("operator required")
	}
	now := at.clock.Now()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    at.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the JWT and returns its operator.
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(at.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if at.issuer != "" {
		opts = append(opts, jwt.WithIssuer(at.issuer))
	}

	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return at.secretKey, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens *AuthToken, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			logger.WarnTag("AUTH", "missing bearer token for %s %s", c.Request.Method, c.Request.URL.Path)
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		operator, err := tokens.VerifyToken(token)
		if err != nil {
			logger.WarnTag("AUTH", "rejected token: %v", err)
			RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}
		c.Set("operator", operator)
		c.Next()
	}
}
