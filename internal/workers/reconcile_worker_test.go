package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/services/dto"
)

type stubOrders struct {
	services.OrderService
	calls  atomic.Int32
	minAge time.Duration
	limit  int
	err    error
}

func (s *stubOrders) ReconcilePending(_ context.Context, minAge time.Duration, limit int) (dto.ReconcileResult, error) {
	s.calls.Add(1)
	s.minAge, s.limit = minAge, limit
	return dto.ReconcileResult{Checked: 1, Resolved: 1}, s.err
}

func TestMain(m *testing.M) {
	logger.Init("test")
	m.Run()
}

func TestReconcileWorker_RunOncePassesLimits(t *testing.T) {
	orders := &stubOrders{}
	w := NewReconcileWorker(orders, time.Hour, 10*time.Minute, 25)

	w.RunOnce(context.Background())

	assert.EqualValues(t, 1, orders.calls.Load())
	assert.Equal(t, 10*time.Minute, orders.minAge)
	assert.Equal(t, 25, orders.limit)
}

func TestReconcileWorker_ErrorDoesNotStopLoop(t *testing.T) {
	orders := &stubOrders{err: errors.New("db down")}
	w := NewReconcileWorker(orders, 5*time.Millisecond, time.Minute, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.Eventually(t, func() bool { return orders.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
