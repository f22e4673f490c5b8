package reconcile

import (
	"context"
	"fmt"

	"github.com/railtix/ticketing-backend/internal/cron"
	"github.com/railtix/ticketing-backend/internal/inventory"
	"github.com/railtix/ticketing-backend/internal/stock"
	"github.com/railtix/ticketing-backend/pkg/db/models"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"go.uber.org/multierr"
)

// ledgerReader lists every durable ledger row.
type ledgerReader interface {
	All(ctx context.Context) ([]models.InventoryRecord, error)
}

// RestoreJobParams configure the counter restore job.
type RestoreJobParams struct {
	Logger *logger.Logger
	Stock  *stock.Controller
	Ledger ledgerReader
}

// NewRestoreJob builds the cron job that reseeds missing leg counters from
// the ledger after a cache loss. Counters that still exist are left alone;
// between fold cycles Redis holds admissions the ledger has not seen yet.
func NewRestoreJob(params RestoreJobParams) (cron.Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock controller required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	return &restoreJob{
		logg:   params.Logger,
		stock:  params.Stock,
		ledger: params.Ledger,
	}, nil
}

type restoreJob struct {
	logg   *logger.Logger
	stock  *stock.Controller
	ledger ledgerReader
}

func (j *restoreJob) Name() string { return "stock-restore" }

func (j *restoreJob) Run(ctx context.Context) error {
	records, err := j.ledger.All(ctx)
	if err != nil {
		return fmt.Errorf("list ledger rows: %w", err)
	}

	var errs []error
	seeded := 0
	for _, record := range records {
		key := inventory.Key{
			TrainID:         record.TrainID,
			DepartureStopID: record.DepartureStopID,
			ArrivalStopID:   record.ArrivalStopID,
			TravelDate:      record.TravelDate,
			CarriageTypeID:  record.CarriageTypeID,
		}
		_, found, err := j.stock.Count(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("read counter for inventory %d: %w", record.InventoryID, err))
			continue
		}
		if found {
			continue
		}
		if err := j.stock.Seed(ctx, key, record.AvailableSeats); err != nil {
			errs = append(errs, fmt.Errorf("seed counter for inventory %d: %w", record.InventoryID, err))
			continue
		}
		seeded++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"rows":   len(records),
		"seeded": seeded,
	})
	j.logg.Info(logCtx, "counter restore complete")
	return multierr.Combine(errs...)
}
