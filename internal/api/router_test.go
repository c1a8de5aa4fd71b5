package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/api/middleware"
	"github.com/Marga-Ghale/teamhub-backend/internal/metrics"
	"github.com/Marga-Ghale/teamhub-backend/internal/models"
	"github.com/Marga-Ghale/teamhub-backend/internal/repository/memory"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "router-test-secret"

type apiTest struct {
	t       *testing.T
	router  *gin.Engine
	metrics *metrics.Metrics
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	log := zap.NewNop().Sugar()
	m := metrics.New()
	services := service.NewServices(&service.ServiceDeps{
		Store:    store,
		Queries:  store,
		Recorder: m,
		Log:      log,
	})

	return &apiTest{
		t:       t,
		metrics: m,
		router: NewRouter(RouterDeps{
			Services:    services,
			Verifier:    middleware.NewJWTVerifier(secret),
			InviteLimit: middleware.NewRateLimiter(600, 10, log),
			Metrics:     m,
			Log:         log,
		}),
	}
}

func (a *apiTest) token(user string) string {
	a.t.Helper()
	email := user + "@example.com"
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Name:  user,
		Email: &email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-" + user,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(a.t, err)
	return token
}

func (a *apiTest) do(user, method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(user))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *apiTest) currentTeam(user string) models.TeamResponse {
	a.t.Helper()
	w := a.do(user, http.MethodGet, "/api/teams/current", nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.TeamResponse](a.t, w)
}

func memberID(team models.TeamResponse, userID string) string {
	for _, m := range team.Members {
		if m.UserID == userID {
			return m.ID
		}
	}
	return ""
}

func TestMembershipLifecycleOverHTTP(t *testing.T) {
	a := newAPITest(t)

	// First request bootstraps each account with a personal team.
	aliceTeam := a.currentTeam("alice")
	require.Len(t, aliceTeam.Members, 1)
	assert.Equal(t, "owner", aliceTeam.Members[0].Role)
	a.currentTeam("bob")
	a.currentTeam("carol")

	w := a.do("alice", http.MethodPost, "/api/teams/current/invitations", models.InviteMemberRequest{
		Email: "bob@example.com",
		Role:  "member",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.SuccessResponse{Success: true, Message: "Invitation sent to bob@example.com"},
		decode[models.SuccessResponse](t, w))

	w = a.do("bob", http.MethodGet, "/api/invitations/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]models.InvitationResponse](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, aliceTeam.ID, pending[0].TeamID)

	w = a.do("bob", http.MethodPost, "/api/invitations/accept", models.AcceptInvitationRequest{InvitationID: pending[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do("alice", http.MethodPost, "/api/teams/current/invitations", models.InviteMemberRequest{
		Email: "carol@example.com",
		Role:  "member",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do("carol", http.MethodGet, "/api/invitations/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending = decode[[]models.InvitationResponse](t, w)
	require.Len(t, pending, 1)
	w = a.do("carol", http.MethodPost, "/api/invitations/accept", models.AcceptInvitationRequest{InvitationID: pending[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	team := a.currentTeam("alice")
	require.Len(t, team.Members, 3)
	assert.Equal(t, aliceTeam.ID, a.currentTeam("bob").ID)

	// Members cannot manage roles.
	w = a.do("bob", http.MethodPatch, "/api/teams/members/"+memberID(team, "user-alice")+"/role",
		models.UpdateMemberRoleRequest{Role: "member"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", decode[models.ErrorResponse](t, w).Error.Code)

	// The sole owner leaving hands the team to the earliest-joined member.
	w = a.do("alice", http.MethodPost, "/api/teams/current/leave", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	team = a.currentTeam("bob")
	assert.Equal(t, aliceTeam.ID, team.ID)
	require.Len(t, team.Members, 2)
	for _, m := range team.Members {
		if m.UserID == "user-bob" {
			assert.Equal(t, "owner", m.Role)
		} else {
			assert.Equal(t, "member", m.Role)
		}
	}
	assert.NotEqual(t, team.ID, a.currentTeam("alice").ID)

	w = a.do("bob", http.MethodGet, "/api/teams/current/activity?limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	actions := map[string]bool{}
	for _, act := range decode[[]models.ActivityResponse](t, w) {
		actions[act.Action] = true
	}
	assert.True(t, actions["INVITE_TEAM_MEMBER"])
	assert.True(t, actions["ACCEPT_INVITATION"])
	assert.True(t, actions["LEAVE_TEAM"])
	assert.True(t, actions["TRANSFER_OWNERSHIP"])

	w = a.do("bob", http.MethodDelete, "/api/account", models.DeleteAccountRequest{Confirmation: "delete"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	scrape := httptest.NewRecorder()
	a.metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `teamhub_transitions_total{code="ok",operation="leave_team"} 1`)
	assert.Contains(t, scrape.Body.String(), `teamhub_transitions_total{code="Forbidden",operation="update_member_role"} 1`)
}

func TestRequestErrors(t *testing.T) {
	a := newAPITest(t)
	a.currentTeam("alice")

	tests := []struct {
		name    string
		user    string
		method  string
		path    string
		body    interface{}
		status  int
		code    string
		message string
	}{
		{
			name: "unauthenticated", method: http.MethodGet, path: "/api/teams/current",
			status: http.StatusUnauthorized, code: "Unauthorized",
		},
		{
			name: "invalid email", user: "alice", method: http.MethodPost, path: "/api/teams/current/invitations",
			body:   models.InviteMemberRequest{Email: "not-an-email", Role: "member"},
			status: http.StatusBadRequest, code: "ValidationError", message: "email must be a valid email address",
		},
		{
			name: "malformed json", user: "alice", method: http.MethodPost, path: "/api/teams/current/invitations",
			body:   "{",
			status: http.StatusBadRequest, code: "ValidationError",
		},
		{
			name: "accept without token or id", user: "alice", method: http.MethodPost, path: "/api/invitations/accept",
			status: http.StatusBadRequest, code: "ValidationError", message: "either token or invitationId is required",
		},
		{
			name: "unknown invitation", user: "alice", method: http.MethodPost, path: "/api/invitations/nope/reject",
			status: http.StatusNotFound, code: "NotFound",
		},
		{
			name: "sole member cannot leave", user: "alice", method: http.MethodPost, path: "/api/teams/current/leave",
			status: http.StatusConflict, code: "Conflict",
		},
		{
			name: "delete without confirmation", user: "alice", method: http.MethodDelete, path: "/api/account",
			status: http.StatusBadRequest, code: "ValidationError",
		},
		{
			name: "bad activity limit", user: "alice", method: http.MethodGet, path: "/api/teams/current/activity?limit=abc",
			status: http.StatusBadRequest, code: "ValidationError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(tt.user, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			body := decode[models.ErrorResponse](t, w)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
		})
	}
}

func TestBillingHistoryEmpty(t *testing.T) {
	a := newAPITest(t)

	w := a.do("alice", http.MethodGet, "/api/billing/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
