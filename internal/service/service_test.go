package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/event"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/pkg/database"
	pkgkafka "github.com/inkwellhq/inkwell/pkg/kafka"
)

const (
	testPrincipalID = "6f1c1d3e-8b2a-4d5e-9c7f-2a4b6c8d0e1f"
	testFriendID    = "0a9b8c7d-6e5f-4a3b-2c1d-0e9f8a7b6c5d"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(
		"access-secret-used-only-in-tests-0001",
		"refresh-secret-used-only-in-tests-01",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func newTestEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func testPrincipal() *domain.Principal {
	return &domain.Principal{ID: testPrincipalID, DisplayName: "Ada", Role: domain.RoleMember}
}

// scopedContext builds a context the way the middleware chain would: a
// principal plus a row-scoped transaction on a mock pool. The returned scope
// lets tests drive the commit that fires after-commit hooks.
func scopedContext(t *testing.T) (context.Context, *rls.Scope, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := database.NewMockPool()
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.current_user_id").
		WillReturnResult(pgxmock.NewResult("SET", 0))

	manager := rls.NewManager(mock, testLogger())
	scope, err := manager.Begin(context.Background(), testPrincipalID)
	require.NoError(t, err)

	ctx := auth.WithPrincipal(context.Background(), testPrincipal())
	ctx = rls.WithScope(ctx, scope)
	return ctx, scope, mock
}
