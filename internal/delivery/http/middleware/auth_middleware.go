package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"
	"autopost-backend/pkg/auth"
	"autopost-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var errNoToken = errors.New("no bearer token")

// TokenVerifier checks Supabase access tokens. RS256 and ES256 tokens are
// verified against the project's JWKS, HS256 tokens against the JWT secret.
type TokenVerifier struct {
	jwks   *auth.Provider
	secret []byte
}

func NewTokenVerifier(jwks *auth.Provider, secret string) *TokenVerifier {
	return &TokenVerifier{jwks: jwks, secret: []byte(secret)}
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, fmt.Errorf("HS256 token received but SUPABASE_JWT_SECRET is not configured")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		if v.jwks == nil {
			return nil, fmt.Errorf("no JWKS provider configured")
		}
		return v.jwks.KeyFunc(token)
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

// Verify parses the token and returns its claims.
func (v *TokenVerifier) Verify(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware rejects requests without a valid Supabase session.
func AuthMiddleware(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, verifier)
		if err != nil {
			if errors.Is(err, errNoToken) {
				response.Abort(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required")
				return
			}
			logger.Log.Debug("Token validation failed", "error", err, "path", c.FullPath())
			response.Abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is sent and
// lets anonymous requests through.
func OptionalAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, verifier)
		if err == nil {
			setIdentity(c, claims)
		} else if !errors.Is(err, errNoToken) {
			logger.Log.Debug("Ignoring invalid token on public route", "error", err, "path", c.FullPath())
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, verifier *TokenVerifier) (jwt.MapClaims, error) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return nil, errNoToken
	}
	return verifier.Verify(tokenString)
}

// bearerToken reads the Authorization header, then the auth_token cookie.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie("auth_token"); err == nil {
		return cookie
	}
	return ""
}

// setIdentity stores the caller in both the gin keys and the request
// context, since usecases only see the latter.
func setIdentity(c *gin.Context, claims jwt.MapClaims) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	c.Set(string(domain.KeyUserID), sub)
	c.Set(string(domain.KeyUserEmail), email)
	c.Set(string(domain.KeyUserRole), role)

	ctx := context.WithValue(c.Request.Context(), domain.KeyUserID, sub)
	ctx = context.WithValue(ctx, domain.KeyUserEmail, email)
	ctx = context.WithValue(ctx, domain.KeyUserRole, role)
	c.Request = c.Request.WithContext(ctx)
}
