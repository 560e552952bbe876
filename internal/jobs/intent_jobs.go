package jobs

import "context"

// ScanIntents runs one matching cycle over all unresolved intents. The
// cadence is fixed by configuration; intents created between cycles also
// get an immediate scan at creation time.
func (jr *JobRunner) ScanIntents() {
	jr.runWithRecovery("ScanIntents", func() {
		jr.services.Matching.Scan(context.Background())
	})
}
