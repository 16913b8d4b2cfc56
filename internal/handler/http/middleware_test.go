package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/domain"
)

func gateHarness(t *testing.T) (*stubRecorder, http.Handler) {
	t.Helper()

	user := &domain.User{
		ID:          testUserID,
		Email:       "ada@example.com",
		DisplayName: "Ada",
		Role:        domain.RoleMember,
	}
	authService := newTestAuthService(newStubUserRepo(user), newStubTokenRepo())
	recorder := &stubRecorder{}

	handler := Authenticate(authService, testJWTManager(), recorder, testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	return recorder, handler
}

func TestAuthenticate_ValidToken(t *testing.T) {
	user := &domain.User{
		ID:          testUserID,
		Email:       "ada@example.com",
		DisplayName: "Ada",
		Role:        domain.RoleMember,
	}
	authService := newTestAuthService(newStubUserRepo(user), newStubTokenRepo())
	recorder := &stubRecorder{}

	var seen *domain.Principal
	handler := Authenticate(authService, testJWTManager(), recorder, testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = auth.PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)

	token, err := testJWTManager().GenerateAccessToken(user.ID, user.DisplayName, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, testUserID, seen.ID)
	assert.Equal(t, "Ada", seen.DisplayName)
	assert.Empty(t, recorder.recorded())
}

func TestAuthenticate_MissingCookie(t *testing.T) {
	recorder, handler := gateHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, recorder.recorded())
}

func TestAuthenticate_ExpiredToken_NoSecurityEvent(t *testing.T) {
	recorder, handler := gateHarness(t)

	expired := auth.NewJWTManager(
		"access-secret-used-only-in-tests-0001",
		"refresh-secret-used-only-in-tests-01",
		-time.Minute, time.Hour,
	)
	token, err := expired.GenerateAccessToken(testUserID, "Ada", domain.RoleMember)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Expiry is routine; no event is recorded.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, recorder.recorded())
}

func TestAuthenticate_ForgedToken_RecordsSecurityEvent(t *testing.T) {
	recorder, handler := gateHarness(t)

	forged, err := auth.NewJWTManager(
		"some-other-access-secret-entirely-x",
		"some-other-refresh-secret-entirely",
		time.Minute, time.Hour,
	).GenerateAccessToken(testUserID, "Ada", domain.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: forged})
	req.RemoteAddr = "203.0.113.9:50214"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	events := recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SecurityEventBadToken, events[0].EventType)
	assert.Equal(t, domain.SeverityCritical, events[0].Severity)
	assert.Equal(t, "203.0.113.9", events[0].SourceAddress)
	assert.Nil(t, events[0].PrincipalID)
}

func TestAuthenticate_GarbageToken_RecordsSecurityEvent(t *testing.T) {
	recorder, handler := gateHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "not-a-jwt-at-all"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	events := recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SecurityEventBadToken, events[0].EventType)
	assert.Equal(t, domain.SeverityWarning, events[0].Severity)
}

func TestAuthenticate_DeletedAccount(t *testing.T) {
	// Valid token, but the user row is gone: claims alone are not enough.
	authService := newTestAuthService(newStubUserRepo(), newStubTokenRepo())
	recorder := &stubRecorder{}

	handler := Authenticate(authService, testJWTManager(), recorder, testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run for a deleted account")
		}),
	)

	token, err := testJWTManager().GenerateAccessToken(testUserID, "Ada", domain.RoleMember)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContentTypeJSON_RejectsOtherTypes(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", nil)
	req.Header.Set("Content-Type", "text/plain")
	req.ContentLength = 10
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
