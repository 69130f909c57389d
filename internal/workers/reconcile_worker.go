package workers

import (
	"context"
	"time"

	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/services"
)

const reconcileWorker = "reconcile"

// ReconcileWorker re-polls orders the gateway never told us about. IPNs get
// lost; the status a customer sees must not depend on them.
type ReconcileWorker struct {
	orders   services.OrderService
	interval time.Duration
	minAge   time.Duration
	batch    int
}

func NewReconcileWorker(orders services.OrderService, interval, minAge time.Duration, batch int) *ReconcileWorker {
	return &ReconcileWorker{
		orders:   orders,
		interval: interval,
		minAge:   minAge,
		batch:    batch,
	}
}

// Start запускает фоновую сверку заказов
func (w *ReconcileWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *ReconcileWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconciliation pass.
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	res, err := w.orders.ReconcilePending(ctx, w.minAge, w.batch)
	if err != nil {
		logger.WorkerLog(reconcileWorker, "reconcile_pending", err)
		return
	}
	if res.Checked > 0 {
		logger.Info("Pending orders reconciled",
			"checked", res.Checked, "resolved", res.Resolved, "failed", res.Failed)
	}
}
