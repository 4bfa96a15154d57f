package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/civic-report-api/api"
	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
)

func newAuthenticator() api.Authenticator {
	return api.Authenticator{
		Secret: []byte("test-secret"),
		Users: store.NewUserDirectory(
			models.User{ID: "citizen", Role: models.RoleCitizen, TrustScore: 40},
			models.User{ID: "insp1", Role: models.RoleAuthority},
		),
	}
}

// echoUser writes the acting user id back
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, ok := api.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(u.ID))
})

func TestAuthenticator_ValidToken(t *testing.T) {
	a := newAuthenticator()
	token, err := a.Token("citizen", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	a.Middleware(echoUser).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "citizen", rr.Body.String())
}

func TestAuthenticator_QueryToken(t *testing.T) {
	a := newAuthenticator()
	token, err := a.Token("insp1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/ws/reports?access_token="+token, nil)
	rr := httptest.NewRecorder()
	a.Middleware(echoUser).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "insp1", rr.Body.String())
}

func TestAuthenticator_Rejects(t *testing.T) {
	a := newAuthenticator()
	other := api.Authenticator{Secret: []byte("other-secret")}
	wrongKey, _ := other.Token("citizen", time.Hour)
	expired, _ := a.Token("citizen", -time.Minute)
	unknown, _ := a.Token("ghost", time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(a.Secret)
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "citizen"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"garbage", "Bearer asdfasdf"},
		{"wrong key", "Bearer " + wrongKey},
		{"expired", "Bearer " + expired},
		{"unknown user", "Bearer " + unknown},
		{"no subject", "Bearer " + noSubject},
		{"alg none", "Bearer " + unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/reports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			a.Middleware(echoUser).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRequireAuthority(t *testing.T) {
	h := api.RequireAuthority(echoUser)

	req := httptest.NewRequest("PATCH", "/api/v1/reports/1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(api.WithUser(req.Context(), models.User{ID: "citizen", Role: models.RoleCitizen})))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(api.WithUser(req.Context(), models.User{ID: "insp1", Role: models.RoleAuthority})))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestLogger(t *testing.T) {
	var seen string
	h := api.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/reports", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-Id"))

	req := httptest.NewRequest("GET", "/api/v1/reports", nil)
	req.Header.Set("X-Request-Id", "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := api.TimeoutMiddleware(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}
