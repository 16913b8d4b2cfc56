package http

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/inkwellhq/inkwell/internal/audit"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/service"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
	"github.com/inkwellhq/inkwell/pkg/httputil"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate verifies the session cookie and attaches a live principal to
// the request context.
//
// The token proves who signed in; the account row decides who they are now.
// Claims from a verified token are re-resolved against the database on every
// request, so a deleted account or changed role takes effect immediately. A
// token that fails verification for any reason other than expiry is treated
// as tampering and recorded as a security event before the 401 goes out.
func Authenticate(authService *service.AuthService, jwtManager *auth.JWTManager, recorder audit.Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(accessTokenCookie)
			if err != nil || cookie.Value == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), logger)
				return
			}

			claims, err := jwtManager.ValidateAccessToken(cookie.Value)
			if err != nil {
				if errors.Is(err, auth.ErrBadSignature) || errors.Is(err, auth.ErrTokenMalformed) {
					recorder.Record(r.Context(), &domain.SecurityEvent{
						EventType:     domain.SecurityEventBadToken,
						Severity:      tokenFailureSeverity(err),
						SourceAddress: clientAddr(r),
						Details:       err.Error(),
					})
				}
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired session"), logger)
				return
			}

			principal, err := authService.Principal(r.Context(), claims)
			if err != nil {
				httputil.WriteError(w, r, err, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// tokenFailureSeverity grades a rejected token: a bad signature means someone
// holds a forged or re-signed token, a parse failure is more likely noise.
func tokenFailureSeverity(err error) string {
	if errors.Is(err, auth.ErrBadSignature) {
		return domain.SeverityCritical
	}
	return domain.SeverityWarning
}

// requirePrincipal returns the authenticated principal or a 401 error.
func requirePrincipal(r *http.Request) (*domain.Principal, error) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return principal, nil
}

// parsePagination reads page and per_page query parameters. On an invalid
// value it writes a 400 response and returns ok=false.
func parsePagination(w http.ResponseWriter, r *http.Request) (page, perPage int, ok bool) {
	page = 1
	perPage = 20

	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return 0, 0, false
		}
		page = p
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < 1 || pp > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return 0, 0, false
		}
		perPage = pp
	}

	return page, perPage, true
}

// clientAddr strips the port from RemoteAddr for audit records.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
