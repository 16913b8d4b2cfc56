package rls

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/inkwellhq/inkwell/internal/auth"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
	"github.com/inkwellhq/inkwell/pkg/httputil"
)

// Middleware opens a row-scoped transaction for each authenticated request
// and guarantees exactly one terminal action on it.
//
// The handler's response is buffered and the transaction committed before
// the first byte reaches the client: a success response is only ever sent
// for changes that are durably committed. If the commit fails the buffered
// response is discarded and the client gets a 500. A 5xx status from the
// handler, a panic, or a client disconnect rolls the transaction back.
func Middleware(manager *Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				// The authentication gate must run first; reaching this
				// point without a principal is a routing mistake.
				logger.Error("row-scope middleware reached without principal", slog.String("path", r.URL.Path))
				httputil.WriteError(w, r, apperrors.Internal(errors.New("no principal bound to request")), logger)
				return
			}

			start := time.Now()
			scope, err := manager.Begin(r.Context(), principal.ID)
			if err != nil {
				logger.Error("open row-scoped tx",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, r, apperrors.Internal(err), logger)
				return
			}

			rec := &bufferedResponse{header: make(http.Header)}
			ctx := WithScope(r.Context(), scope)

			defer func() {
				if p := recover(); p != nil {
					rollback(scope, r, logger, "panic")
					txDuration.Observe(time.Since(start).Seconds())
					panic(p)
				}
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))

			txDuration.Observe(time.Since(start).Seconds())

			// A disconnected client gets nothing durable: the work is
			// discarded rather than half-announced.
			if r.Context().Err() != nil {
				rollback(scope, r, logger, "client_disconnect")
				return
			}

			if rec.statusCode() >= http.StatusInternalServerError {
				rollback(scope, r, logger, "handler_error")
				rec.flush(w)
				return
			}

			if err := scope.Commit(r.Context()); err != nil {
				txOutcomes.WithLabelValues("rollback", "commit_failed").Inc()
				logger.Error("commit row-scoped tx",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, r, apperrors.Internal(err), logger)
				return
			}

			txOutcomes.WithLabelValues("commit", "ok").Inc()
			rec.flush(w)
		})
	}
}

func rollback(scope *Scope, r *http.Request, logger *slog.Logger, reason string) {
	txOutcomes.WithLabelValues("rollback", reason).Inc()
	// The request context may already be canceled; rollback must still run.
	if err := scope.Rollback(context.WithoutCancel(r.Context())); err != nil {
		logger.Error("rollback row-scoped tx",
			slog.String("path", r.URL.Path),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

// bufferedResponse holds the handler's response until the transaction's fate
// is decided.
type bufferedResponse struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) statusCode() int {
	if !b.wroteHeader {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedResponse) flush(w http.ResponseWriter) {
	for k, vv := range b.header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(b.statusCode())
	if b.body.Len() > 0 {
		_, _ = w.Write(b.body.Bytes())
	}
}
