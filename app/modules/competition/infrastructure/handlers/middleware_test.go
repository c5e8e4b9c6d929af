package competitionhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bcjwt "github.com/beatclash/beatclash/pkg/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func principalEcho(t *testing.T, got *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		*got = p
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokens := bcjwt.NewService("secret", time.Hour)
	userID := uuid.New()
	valid, err := tokens.GenerateToken(userID, bcjwt.RoleJudge, 0)
	require.NoError(t, err)
	foreign, err := bcjwt.NewService("other", time.Hour).GenerateToken(userID, bcjwt.RoleAdmin, 0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusNoContent},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "foreign signature", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Principal
			h := AuthMiddleware(tokens)(principalEcho(t, &got))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, Principal{UserID: userID, Role: bcjwt.RoleJudge}, got)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(bcjwt.RoleAdmin, bcjwt.RoleJudge)(ok)

	tests := []struct {
		name       string
		principal  *Principal
		wantStatus int
	}{
		{name: "admin", principal: &Principal{UserID: uuid.New(), Role: bcjwt.RoleAdmin}, wantStatus: http.StatusNoContent},
		{name: "judge", principal: &Principal{UserID: uuid.New(), Role: bcjwt.RoleJudge}, wantStatus: http.StatusNoContent},
		{name: "voter", principal: &Principal{UserID: uuid.New(), Role: bcjwt.RoleVoter}, wantStatus: http.StatusForbidden},
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				r = r.WithContext(WithPrincipal(r.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 1)
	h := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2:5000"))
}

func TestIPRateLimiter_ReusesLimiterPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, limiter.GetLimiter("1.2.3.4"), limiter.GetLimiter("1.2.3.4"))
	assert.NotSame(t, limiter.GetLimiter("1.2.3.4"), limiter.GetLimiter("5.6.7.8"))
}
