// Package reconcile keeps the two ledger tiers in agreement. The fold job
// copies the Redis leg counters into the durable ledger; the restore job
// rebuilds the counters from the ledger after a cache loss. Redis leads
// between reconciliations, so a lost version race is a skip, not an error.
package reconcile

import (
	"context"
	"fmt"

	"github.com/railtix/ticketing-backend/internal/cron"
	"github.com/railtix/ticketing-backend/internal/inventory"
	"github.com/railtix/ticketing-backend/internal/stock"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"go.uber.org/multierr"
)

// FoldJobParams configure the counter fold job.
type FoldJobParams struct {
	Logger    *logger.Logger
	Stock     *stock.Controller
	Inventory *inventory.Service
}

// NewFoldJob builds the cron job that folds leg counters into the ledger.
func NewFoldJob(params FoldJobParams) (cron.Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock controller required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &foldJob{
		logg:      params.Logger,
		stock:     params.Stock,
		inventory: params.Inventory,
	}, nil
}

type foldJob struct {
	logg      *logger.Logger
	stock     *stock.Controller
	inventory *inventory.Service
}

func (j *foldJob) Name() string { return "inventory-fold" }

func (j *foldJob) Run(ctx context.Context) error {
	keys, err := j.stock.Keys(ctx)
	if err != nil {
		return fmt.Errorf("scan leg counters: %w", err)
	}

	var errs []error
	folded, skipped := 0, 0
	for _, redisKey := range keys {
		applied, err := j.foldOne(ctx, redisKey)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if applied {
			folded++
		} else {
			skipped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": len(keys),
		"folded":  folded,
		"skipped": skipped,
	})
	j.logg.Info(logCtx, "counter fold complete")
	return multierr.Combine(errs...)
}

// foldOne pushes one counter into its ledger row. The second return is false
// when nothing needed to change or another writer got there first.
func (j *foldJob) foldOne(ctx context.Context, redisKey string) (bool, error) {
	key, err := stock.ParseKey(redisKey)
	if err != nil {
		// a foreign key under the stock prefix; log and move on
		j.logg.Warn(j.logg.WithField(ctx, "key", redisKey), "skipping unparseable leg counter key")
		return false, nil
	}

	count, found, err := j.stock.CountByKey(ctx, redisKey)
	if err != nil {
		return false, fmt.Errorf("read counter %s: %w", redisKey, err)
	}
	if !found {
		// expired between scan and read
		return false, nil
	}

	snap, err := j.inventory.Lookup(ctx, key)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInventoryMiss) {
			j.logg.Warn(j.logg.WithField(ctx, "key", redisKey), "leg counter has no ledger row")
			return false, nil
		}
		return false, fmt.Errorf("lookup ledger row for %s: %w", redisKey, err)
	}
	if snap.AvailableSeats == count {
		return false, nil
	}
	if count > snap.TotalSeats {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"key":   redisKey,
			"count": count,
			"total": snap.TotalSeats,
		}), "leg counter exceeds total seats, not folding")
		return false, nil
	}

	applied, err := j.inventory.ApplyOnce(ctx, snap, count)
	if err != nil {
		return false, fmt.Errorf("fold counter %s: %w", redisKey, err)
	}
	// a lost race means someone else advanced the row; the next cycle
	// re-reads both tiers
	return applied, nil
}
