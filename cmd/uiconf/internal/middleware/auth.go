// Package middleware provides JWT bearer authentication and role checks
// for the console API.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
)

// ContextKey type for context keys
type ContextKey string

// UserClaimsKey is the key for user claims in request context
const UserClaimsKey ContextKey = constants.ContextKeyUserClaims

// UserClaims represents the claims extracted from JWT token
type UserClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role.
func (c *UserClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// JWTConfig holds JWT middleware configuration
type JWTConfig struct {
	Secret string
	Logger *logging.Logger
}

// JWTMiddleware validates HS256 bearer tokens.
type JWTMiddleware struct {
	secret []byte
	logger *logging.Logger
	errors *apierrors.ErrorHandler
	parser *jwt.Parser
}

// NewJWTMiddleware creates a new JWT middleware instance
func NewJWTMiddleware(config JWTConfig, errorHandler *apierrors.ErrorHandler) *JWTMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &JWTMiddleware{
		secret: []byte(config.Secret),
		logger: logger,
		errors: errorHandler,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(constants.JWTClockSkew),
			jwt.WithExpirationRequired(),
		),
	}
}

// Authenticate rejects requests without a valid bearer token and stores
// the claims in the request context.
func (m *JWTMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			m.logAuthFailure(r, "missing or invalid authorization header", err)
			m.errors.WriteError(w, r, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.CodeMissingToken,
				"Missing or invalid authorization header"))
			return
		}

		claims, err := m.validateToken(token)
		if err != nil {
			m.logAuthFailure(r, "invalid token", err)
			m.errors.WriteError(w, r, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.CodeInvalidToken,
				"Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole authenticates the request and then requires role.
func (m *JWTMiddleware) RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := GetUserClaims(r.Context())
		if !claims.HasRole(role) {
			m.logAuthFailure(r, "insufficient permissions", fmt.Errorf("user %s lacks role %s", claims.UserID, role))
			m.errors.WriteError(w, r, apierrors.NewForbiddenError("Insufficient permissions"))
			return
		}
		next(w, r)
	})
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, constants.AuthSchemeBearer) {
		return "", fmt.Errorf("authorization header must be in '%s <token>' format", constants.AuthSchemeBearer)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("token is empty")
	}
	return token, nil
}

func (m *JWTMiddleware) validateToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// logAuthFailure logs authentication failures for security monitoring
func (m *JWTMiddleware) logAuthFailure(r *http.Request, reason string, err error) {
	log := m.logger.WithContext(r.Context()).WithFields(map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	if err != nil {
		log.Warnf("AUTH_FAILURE: %s: %v", reason, err)
		return
	}
	log.Warnf("AUTH_FAILURE: %s", reason)
}

// GenerateToken signs an HS256 token for userID valid for expiration.
func GenerateToken(secret string, userID string, roles []string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-constants.JWTClockSkew)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GetUserClaims extracts user claims from request context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*UserClaims)
	return claims, ok
}
