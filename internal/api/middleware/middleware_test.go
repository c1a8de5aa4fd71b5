package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) Claims {
	email := sub + "@example.com"
	return Claims{
		SessionID: "sess-" + sub,
		Name:      sub,
		Email:     &email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

type fakeSessions struct {
	active bool
	err    error
}

func (f fakeSessions) Active(context.Context, string, string) (bool, error) {
	return f.active, f.err
}

type fakeAccounts struct {
	seen []service.Identity
	err  error
}

func (f *fakeAccounts) Bootstrap(_ context.Context, id service.Identity) (*repository.User, error) {
	f.seen = append(f.seen, id)
	if f.err != nil {
		return nil, f.err
	}
	return &repository.User{ID: id.UserID}, nil
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	claims, err := v.Parse(sign(t, testSecret, validClaims("alice")))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "sess-alice", claims.SessionID)

	expired := validClaims("alice")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noSubject := validClaims("")
	noExpiry := validClaims("alice")
	noExpiry.ExpiresAt = nil

	for name, token := range map[string]string{
		"wrong secret": sign(t, "other", validClaims("alice")),
		"expired":      sign(t, testSecret, expired),
		"no subject":   sign(t, testSecret, noSubject),
		"no expiry":    sign(t, testSecret, noExpiry),
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	userID, err := v.UserID(context.Background(), sign(t, testSecret, validClaims("bob")))
	require.NoError(t, err)
	assert.Equal(t, "bob", userID)
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		sessions SessionChecker
		accounts *fakeAccounts
		status   int
		code     string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: "Unauthorized"},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized, code: "Unauthorized"},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized, code: "Unauthorized"},
		{
			name:     "revoked session",
			header:   "Bearer " + sign(t, testSecret, validClaims("alice")),
			sessions: fakeSessions{active: false},
			status:   http.StatusUnauthorized,
			code:     "Unauthorized",
		},
		{
			name:     "session store down",
			header:   "Bearer " + sign(t, testSecret, validClaims("alice")),
			sessions: fakeSessions{err: errors.New("dial tcp: refused")},
			status:   http.StatusInternalServerError,
			code:     string(service.CodeInternal),
		},
		{
			name:     "bootstrap conflict",
			header:   "Bearer " + sign(t, testSecret, validClaims("alice")),
			accounts: &fakeAccounts{err: &service.Error{Code: service.CodeConflict, Message: "taken"}},
			status:   http.StatusConflict,
			code:     string(service.CodeConflict),
		},
		{
			name:     "authenticated",
			header:   "Bearer " + sign(t, testSecret, validClaims("alice")),
			sessions: fakeSessions{active: true},
			accounts: &fakeAccounts{},
			status:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var accounts AccountBootstrapper
			if tt.accounts != nil {
				accounts = tt.accounts
			}
			r := gin.New()
			r.Use(AuthMiddleware(NewJWTVerifier(testSecret), tt.sessions, accounts, zap.NewNop().Sugar()))
			r.GET("/me", func(c *gin.Context) {
				id, ok := RequireIdentity(c)
				if !ok {
					return
				}
				c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "ip": id.IP})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			}
			if tt.status == http.StatusOK {
				require.Len(t, tt.accounts.seen, 1)
				assert.Equal(t, "alice", tt.accounts.seen[0].UserID)
				assert.Equal(t, "sess-alice", tt.accounts.seen[0].SessionID)
				assert.NotEmpty(t, tt.accounts.seen[0].IP)
			}
		})
	}
}

func TestAuthMiddlewareRequiresSessionWhenStoreConfigured(t *testing.T) {
	claims := validClaims("alice")
	claims.SessionID = ""
	accounts := &fakeAccounts{}

	r := gin.New()
	r.Use(AuthMiddleware(NewJWTVerifier(testSecret), fakeSessions{active: true}, accounts, zap.NewNop().Sugar()))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, claims))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorCode(t, w))
	assert.Empty(t, accounts.seen)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2, zap.NewNop().Sugar())
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(identityKey, service.Identity{UserID: c.GetHeader("X-User")})
		c.Next()
	})
	r.POST("/invite", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/invite", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, call("alice"))
	assert.Equal(t, http.StatusCreated, call("alice"))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
	assert.Equal(t, http.StatusCreated, call("bob"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusCreated, call("alice"))

	now = now.Add(time.Hour)
	rl.Cleanup()
	assert.Empty(t, rl.limiters)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(service.CodeValidation))
	assert.Equal(t, http.StatusForbidden, StatusFor(service.CodeForbidden))
	assert.Equal(t, http.StatusConflict, StatusFor(service.CodeConflict))
	assert.Equal(t, http.StatusGone, StatusFor(service.CodeExpired))
	assert.Equal(t, http.StatusPaymentRequired, StatusFor(service.CodeLimitExceeded))
	assert.Equal(t, http.StatusBadGateway, StatusFor(service.CodeExternalService))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(service.CodeInternal))
}
