package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/granary-erp/granary-erp/internal/jobs"
	"github.com/granary-erp/granary-erp/internal/ledger"
	"github.com/granary-erp/granary-erp/internal/masterdata"
)

// LedgerReconstructor reconstructs daily paddy balances.
type LedgerReconstructor interface {
	DefaultWindow(ctx context.Context, locationID int64, from, to, now time.Time) (time.Time, time.Time, error)
	DailySeries(ctx context.Context, q ledger.Query) (ledger.Series, error)
}

// LocationSource lists the locations to scan.
type LocationSource interface {
	ListLocations(ctx context.Context) ([]masterdata.Location, error)
}

// NewIntegrityScanHandler builds the handler for TaskLedgerIntegrityScan.
// It reconstructs the full ledger of every location and logs each negative
// balance found. A location that fails to reconstruct is logged and skipped;
// the scan itself only fails when no location could be processed.
func NewIntegrityScanHandler(reconstructor LedgerReconstructor, locations LocationSource, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("ledger_integrity_scan")
		return tracker.End(runIntegrityScan(ctx, reconstructor, locations, metrics, logger))
	}
}

func runIntegrityScan(ctx context.Context, reconstructor LedgerReconstructor, locations LocationSource, metrics *jobmetrics.Metrics, logger *slog.Logger) error {
	locs, err := locations.ListLocations(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	var scanned, failed int
	var lastErr error
	for _, loc := range locs {
		from, to, err := reconstructor.DefaultWindow(ctx, loc.ID, time.Time{}, time.Time{}, now)
		if err != nil {
			failed++
			lastErr = err
			logger.Warn("integrity scan: window", slog.Int64("location_id", loc.ID), slog.Any("error", err))
			continue
		}
		series, err := reconstructor.DailySeries(ctx, ledger.Query{LocationID: loc.ID, From: from, To: to})
		if err != nil {
			failed++
			lastErr = err
			logger.Warn("integrity scan: reconstruct", slog.Int64("location_id", loc.ID), slog.Any("error", err))
			continue
		}
		scanned++
		if len(series.Integrity) == 0 {
			continue
		}
		metrics.AddIntegrityIssues(loc.ID, len(series.Integrity))
		for _, issue := range series.Integrity {
			logger.Error("integrity scan: negative balance",
				slog.Int64("location_id", loc.ID),
				slog.String("key", issue.Key),
				slog.String("date", issue.Date),
				slog.String("detail", issue.Detail))
		}
	}
	logger.Info("integrity scan finished", slog.Int("locations", scanned), slog.Int("failed", failed))
	if scanned == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}
