package jobs

import (
	"context"

	"gridlease-backend/internal/logger"
)

// ReconcileExpiredLeases sweeps leases whose expiry passed without a timer
// firing, releasing their assets. Expiry timers are in-memory only, so this
// sweep is what makes lease expiry survive restarts.
func (jr *JobRunner) ReconcileExpiredLeases() {
	jr.runWithRecovery("ReconcileExpiredLeases", func() {
		count, err := jr.services.Lease.ReconcileExpired(context.Background())
		if err != nil {
			logger.Error("Failed to reconcile expired leases", "error", err)
			return
		}
		if count > 0 {
			logger.Info("Reclaimed assets from expired leases", "count", count)
		}
	})
}
