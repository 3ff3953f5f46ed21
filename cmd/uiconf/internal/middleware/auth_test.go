package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
)

const testSecret = "test-secret"

func newTestMiddleware() (*JWTMiddleware, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.LoggerConfig{Format: "json", Output: &buf})
	return NewJWTMiddleware(
		JWTConfig{Secret: testSecret, Logger: logger},
		apierrors.NewErrorHandler(apierrors.ErrorHandlerConfig{Logger: logger}),
	), &buf
}

func bearer(t *testing.T, userID string, roles []string) string {
	t.Helper()
	token, err := GenerateToken(testSecret, userID, roles, time.Hour)
	require.NoError(t, err)
	return constants.AuthSchemeBearer + " " + token
}

func serve(handler http.HandlerFunc, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/task", nil)
	if authorization != "" {
		req.Header.Set(constants.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apierrors.ErrorCode {
	t.Helper()
	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp.ErrorCode
}

func TestAuthenticate_ValidToken(t *testing.T) {
	m, _ := newTestMiddleware()

	var claims *UserClaims
	handler := m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = GetUserClaims(r.Context())
	})

	rec := serve(handler, bearer(t, "user-1", []string{"user"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"user"}, claims.Roles)
}

func TestAuthenticate_Rejections(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		UserID: "u",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{UserID: "u"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongSecret, err := GenerateToken("other", "u", nil, time.Hour)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &UserClaims{
		UserID:           "u",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   apierrors.ErrorCode
	}{
		{"missing header", "", apierrors.CodeMissingToken},
		{"wrong scheme", "Basic abc", apierrors.CodeMissingToken},
		{"empty token", "Bearer  ", apierrors.CodeMissingToken},
		{"garbage", "Bearer not.a.jwt", apierrors.CodeInvalidToken},
		{"expired", "Bearer " + expired, apierrors.CodeInvalidToken},
		{"no expiry", "Bearer " + noExpiry, apierrors.CodeInvalidToken},
		{"wrong secret", "Bearer " + wrongSecret, apierrors.CodeInvalidToken},
		{"wrong algorithm", "Bearer " + hs512, apierrors.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, logs := newTestMiddleware()
			called := false
			rec := serve(m.Authenticate(func(http.ResponseWriter, *http.Request) { called = true }), tt.header)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.Contains(t, logs.String(), "AUTH_FAILURE")
		})
	}
}

func TestAuthenticate_LowercaseScheme(t *testing.T) {
	m, _ := newTestMiddleware()
	token, err := GenerateToken(testSecret, "u", nil, time.Hour)
	require.NoError(t, err)

	rec := serve(m.Authenticate(func(http.ResponseWriter, *http.Request) {}), "bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	m, _ := newTestMiddleware()
	handler := m.RequireRole(constants.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := serve(handler, bearer(t, "admin-1", []string{"user", constants.RoleAdmin}))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(handler, bearer(t, "user-1", []string{"user"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierrors.CodeForbidden, errorCode(t, rec))

	rec = serve(handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserClaims_Missing(t *testing.T) {
	_, ok := GetUserClaims(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
