package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/pkg/database"
)

type stubTokenRepo struct {
	deleteCalls int
	err         error
}

func (s *stubTokenRepo) Create(context.Context, database.DBTX, *domain.RefreshToken) error {
	return nil
}

func (s *stubTokenRepo) GetByHash(context.Context, database.DBTX, string) (*domain.RefreshToken, error) {
	return nil, nil
}

func (s *stubTokenRepo) Revoke(context.Context, database.DBTX, string, string) error { return nil }

func (s *stubTokenRepo) RevokeAllForUser(context.Context, database.DBTX, string, string) error {
	return nil
}

func (s *stubTokenRepo) DeleteExpired(context.Context, database.DBTX, time.Time) (int64, error) {
	s.deleteCalls++
	return 3, s.err
}

type stubEventRepo struct {
	deleteCalls int
	cutoff      time.Time
}

func (s *stubEventRepo) Insert(context.Context, database.DBTX, *domain.SecurityEvent) error {
	return nil
}

func (s *stubEventRepo) DeleteOlderThan(_ context.Context, _ database.DBTX, before time.Time) (int64, error) {
	s.deleteCalls++
	s.cutoff = before
	return 0, nil
}

type stubNotificationRepo struct {
	deleteCalls int
}

func (s *stubNotificationRepo) Insert(context.Context, database.DBTX, *domain.Notification) error {
	return nil
}

func (s *stubNotificationRepo) List(context.Context, database.DBTX, string, int, int) ([]domain.Notification, error) {
	return nil, nil
}

func (s *stubNotificationRepo) CountForUser(context.Context, database.DBTX, string) (int, error) {
	return 0, nil
}

func (s *stubNotificationRepo) MarkRead(context.Context, database.DBTX, string, string) error {
	return nil
}

func (s *stubNotificationRepo) MarkAllRead(context.Context, database.DBTX, string) error {
	return nil
}

func (s *stubNotificationRepo) DeleteRead(context.Context, database.DBTX, time.Time) (int64, error) {
	s.deleteCalls++
	return 2, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJanitor_Sweep_RunsAllJobs(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	// One transaction per job.
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	tokens := &stubTokenRepo{}
	events := &stubEventRepo{}
	notifications := &stubNotificationRepo{}

	j := NewJanitor(rls.NewSystemRunner(mock, testLogger()), tokens, events, notifications, time.Hour, testLogger())
	j.Sweep(context.Background())

	assert.Equal(t, 1, tokens.deleteCalls)
	assert.Equal(t, 1, events.deleteCalls)
	assert.Equal(t, 1, notifications.deleteCalls)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Security events older than the retention window are trimmed.
	wantCutoff := time.Now().UTC().Add(-securityEventRetention)
	assert.WithinDuration(t, wantCutoff, events.cutoff, time.Minute)
}

func TestJanitor_Sweep_OneFailureDoesNotStopOthers(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	// Token purge fails and rolls back; the other two commit.
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	tokens := &stubTokenRepo{err: errors.New("disk on fire")}
	events := &stubEventRepo{}
	notifications := &stubNotificationRepo{}

	j := NewJanitor(rls.NewSystemRunner(mock, testLogger()), tokens, events, notifications, time.Hour, testLogger())
	j.Sweep(context.Background())

	assert.Equal(t, 1, events.deleteCalls)
	assert.Equal(t, 1, notifications.deleteCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJanitor_Run_StopsOnContextCancel(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	// Only the immediate sweep runs before cancellation.
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	j := NewJanitor(rls.NewSystemRunner(mock, testLogger()), &stubTokenRepo{}, &stubEventRepo{}, &stubNotificationRepo{}, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after context cancellation")
	}
}
