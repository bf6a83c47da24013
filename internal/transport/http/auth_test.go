package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-store/internal/platform/clock"
	platformtesting "grant-store/internal/platform/testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAuthTokenRoundTrip(t *testing.T) {
	tokens, err := NewAuthToken(testSecret, "grant-server", time.Minute, clock.Fixed(testNow))
	require.NoError(t, err)

	signed, err := tokens.GenerateToken("ops")
	require.NoError(t, err)

	operator, err := tokens.VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "ops", operator)
}

func TestAuthTokenRejects(t *testing.T) {
	current := testNow
	clk := clock.Func(func() time.Time { return current })
	tokens, err := NewAuthToken(testSecret, "grant-server", time.Minute, clk)
	require.NoError(t, err)
	signed, err := tokens.GenerateToken("ops")
	require.NoError(t, err)

	other, err := NewAuthToken("another-secret-another-secret", "grant-server", time.Minute, clk)
	require.NoError(t, err)
	_, err = other.VerifyToken(signed)
	assert.Error(t, err, "wrong secret")

	foreign, err := NewAuthToken(testSecret, "someone-else", time.Minute, clk)
	require.NoError(t, err)
	_, err = foreign.VerifyToken(signed)
	assert.Error(t, err, "wrong issuer")

	current = current.Add(2 * time.Minute)
	_, err = tokens.VerifyToken(signed)
	assert.Error(t, err, "expired")

	_, err = tokens.GenerateToken("")
	assert.Error(t, err)
	_, err = NewAuthToken("", "", 0, nil)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	tokens, err := NewAuthToken(testSecret, "grant-server", time.Hour, nil)
	require.NoError(t, err)
	r := newTestRouter(t, AuthMiddleware(tokens, platformtesting.SetupTestLogger(t)))

	rec, env := do(t, r, http.MethodGet, "/api/grants?subject_id=u1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", env.Message)

	rec, _ = do(t, r, http.MethodGet, "/api/grants?subject_id=u1", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	signed, err := tokens.GenerateToken("ops")
	require.NoError(t, err)
	rec, _ = do(t, r, http.MethodGet, "/api/grants?subject_id=u1", nil, "Authorization", "Bearer "+signed)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays outside the secured group
	rec, _ = do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
