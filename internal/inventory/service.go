// Package inventory is the durable tier of the two-tier seat ledger. Redis
// counters absorb the admission traffic; rows here are the source of truth
// that reconciliation folds those counters into.
package inventory

import (
	"context"
	"errors"

	"github.com/railtix/ticketing-backend/pkg/db/models"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Service exposes ledger reads and guarded counter writes.
type Service struct {
	repo             *Repository
	logg             *logger.Logger
	defaultBasePrice decimal.Decimal
	retries          int
}

// Params configures the inventory service.
type Params struct {
	Repo             *Repository
	Logger           *logger.Logger
	DefaultBasePrice decimal.Decimal
	Retries          int
}

// NewService builds the inventory service.
func NewService(p Params) (*Service, error) {
	if p.Repo == nil {
		return nil, errors.New("inventory repository is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.Retries <= 0 {
		p.Retries = 3
	}
	if p.DefaultBasePrice.IsZero() {
		p.DefaultBasePrice = decimal.NewFromInt(100)
	}
	return &Service{
		repo:             p.Repo,
		logg:             p.Logger,
		defaultBasePrice: p.DefaultBasePrice,
		retries:          p.Retries,
	}, nil
}

// Lookup loads the ledger row for a leg.
func (s *Service) Lookup(ctx context.Context, key Key) (*Snapshot, error) {
	record, err := s.repo.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInventoryMiss, "no inventory for leg").
			WithDetails(map[string]any{
				"train_id":         key.TrainID,
				"carriage_type_id": key.CarriageTypeID,
				"travel_date":      key.Day().Format("2006-01-02"),
			})
	}
	return snapshotOf(record), nil
}

// Snapshot is a read view of one ledger row.
type Snapshot struct {
	InventoryID    int64
	TotalSeats     int
	AvailableSeats int
	CacheVersion   int64
	DBVersion      int
	Price          decimal.Decimal
}

// BasePrice returns the leg's configured price, falling back to the default
// when the leg has no ledger row yet.
func (s *Service) BasePrice(ctx context.Context, key Key) (decimal.Decimal, error) {
	record, err := s.repo.Find(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if record == nil || record.Price.IsZero() {
		return s.defaultBasePrice, nil
	}
	return record.Price, nil
}

// SetAvailable folds a new available-seat count into the ledger. The write
// retries on version races by re-reading the row; a count that cannot land
// within the retry bound surfaces as a version conflict.
func (s *Service) SetAvailable(ctx context.Context, key Key, available int) error {
	for attempt := 0; attempt < s.retries; attempt++ {
		record, err := s.repo.Find(ctx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return pkgerrors.New(pkgerrors.CodeInventoryMiss, "no inventory for leg")
		}
		if available < 0 || available > record.TotalSeats {
			return pkgerrors.New(pkgerrors.CodeValidation, "available count outside seat range").
				WithDetails(map[string]any{"available": available, "total": record.TotalSeats})
		}
		if record.AvailableSeats == available {
			return nil
		}

		ok, err := s.repo.CompareAndSwap(ctx, record.InventoryID, available, record.CacheVersion, record.DBVersion)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"train_id":  key.TrainID,
		"available": available,
	})
	s.logg.Warn(ctx, "ledger write lost every version race")
	return pkgerrors.New(pkgerrors.CodeVersionConflict, "ledger row kept moving during write")
}

// ApplyOnce performs a single guarded write against a snapshot the caller
// already holds. Reconciliation uses this to skip rather than retry when the
// row moved underneath it.
func (s *Service) ApplyOnce(ctx context.Context, snap *Snapshot, available int) (bool, error) {
	if snap == nil {
		return false, errors.New("snapshot is required")
	}
	if available < 0 || available > snap.TotalSeats {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "available count outside seat range")
	}
	return s.repo.CompareAndSwap(ctx, snap.InventoryID, available, snap.CacheVersion, snap.DBVersion)
}

func snapshotOf(record *models.InventoryRecord) *Snapshot {
	return &Snapshot{
		InventoryID:    record.InventoryID,
		TotalSeats:     record.TotalSeats,
		AvailableSeats: record.AvailableSeats,
		CacheVersion:   record.CacheVersion,
		DBVersion:      record.DBVersion,
		Price:          record.Price,
	}
}
