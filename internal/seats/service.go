// Package seats assigns physical seats to journeys. A seat is free for a
// leg when its occupancy word for the travel date shares no bits with the
// leg's interval mask; assignment claims those bits with a compare-and-set
// so two concurrent bookings can never hold the same seat segment.
package seats

import (
	"context"
	"errors"

	"github.com/railtix/ticketing-backend/internal/seatmap"
	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/pkg/db/models"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
)

// Seats are scanned in order and claimed with a CAS; a lost race moves the
// scan to the next seat, and a full rescan happens between attempts.
const assignAttempts = 3

// Assignment describes a claimed seat.
type Assignment struct {
	SeatID         int64
	CarriageNumber string
	SeatNumber     string
}

// Service implements seat assignment and release.
type Service struct {
	repo     *Repository
	stations *stations.Repository
	logg     *logger.Logger
}

// NewService builds the seat service.
func NewService(repo *Repository, stationsRepo *stations.Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("seat repository is required")
	}
	if stationsRepo == nil {
		return nil, errors.New("stations repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: repo, stations: stationsRepo, logg: logg}, nil
}

// Assign finds a seat that is free for the whole leg and claims it.
func (s *Service) Assign(ctx context.Context, trainID, carriageTypeID, dateIndex, boardSeq, alightSeq int) (*Assignment, error) {
	mask := seatmap.Mask(boardSeq, alightSeq)
	if mask == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid journey interval").
			WithDetails(map[string]any{"board_seq": boardSeq, "alight_seq": alightSeq})
	}
	if dateIndex < 1 || dateIndex > seatmap.WindowDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "travel date outside occupancy window")
	}

	carriages, err := s.stations.CarriagesForTrain(ctx, trainID, carriageTypeID)
	if err != nil {
		return nil, err
	}
	if len(carriages) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeSeatAssignment, "no carriages for train and class").
			WithDetails(map[string]any{"train_id": trainID, "carriage_type_id": carriageTypeID})
	}

	numberByCarriage := make(map[int64]string, len(carriages))
	carriageIDs := make([]int64, 0, len(carriages))
	for _, c := range carriages {
		numberByCarriage[c.CarriageID] = c.CarriageNumber
		carriageIDs = append(carriageIDs, c.CarriageID)
	}

	for attempt := 0; attempt < assignAttempts; attempt++ {
		seats, err := s.repo.SeatsForCarriages(ctx, carriageIDs)
		if err != nil {
			return nil, err
		}
		assignment, retry, err := s.tryClaim(ctx, seats, numberByCarriage, dateIndex, mask)
		if err != nil {
			return nil, err
		}
		if assignment != nil {
			return assignment, nil
		}
		if !retry {
			break
		}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"train_id":   trainID,
		"date_index": dateIndex,
		"interval":   seatmap.Describe(mask),
	})
	s.logg.Warn(ctx, "no seat free for journey interval")
	return nil, pkgerrors.New(pkgerrors.CodeSeatAssignment, "no seat available for journey").
		WithDetails(map[string]any{"train_id": trainID, "date_index": dateIndex})
}

// tryClaim scans seats once. Returns retry=true when at least one CAS was
// lost, meaning a rescan with fresh words may still succeed.
func (s *Service) tryClaim(ctx context.Context, seats []models.Seat, numberByCarriage map[int64]string, dateIndex int, mask uint64) (*Assignment, bool, error) {
	raced := false
	for i := range seats {
		seat := &seats[i]
		word := seat.Word(dateIndex)
		if seatmap.Conflicts(word, mask) {
			continue
		}
		ok, err := s.repo.CompareAndSetWord(ctx, seat.SeatID, dateIndex, word, seatmap.Apply(word, mask))
		if err != nil {
			return nil, false, err
		}
		if !ok {
			raced = true
			continue
		}
		return &Assignment{
			SeatID:         seat.SeatID,
			CarriageNumber: numberByCarriage[seat.CarriageID],
			SeatNumber:     seat.SeatNumber,
		}, false, nil
	}
	return nil, raced, nil
}

// Release clears a leg's bits from a previously claimed seat. Releasing a
// seat that no longer carries the bits is a no-op, so compensation and
// refunds can run more than once.
func (s *Service) Release(ctx context.Context, trainID, carriageTypeID, dateIndex, boardSeq, alightSeq int, carriageNumber, seatNumber string) error {
	mask := seatmap.Mask(boardSeq, alightSeq)
	if mask == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid journey interval")
	}

	carriages, err := s.stations.CarriagesForTrain(ctx, trainID, carriageTypeID)
	if err != nil {
		return err
	}
	var carriageID int64
	found := false
	for _, c := range carriages {
		if c.CarriageNumber == carriageNumber {
			carriageID = c.CarriageID
			found = true
			break
		}
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "carriage not found").
			WithDetails(map[string]any{"train_id": trainID, "carriage_number": carriageNumber})
	}

	seat, err := s.repo.SeatByNumber(ctx, carriageID, seatNumber)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < assignAttempts; attempt++ {
		word := seat.Word(dateIndex)
		next := seatmap.Clear(word, mask)
		if next == word {
			return nil
		}
		ok, err := s.repo.CompareAndSetWord(ctx, seat.SeatID, dateIndex, word, next)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		seat, err = s.repo.Seat(ctx, seat.SeatID)
		if err != nil {
			return err
		}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"seat_id":    seat.SeatID,
		"date_index": dateIndex,
	})
	s.logg.Warn(ctx, "seat release lost every retry")
	return pkgerrors.New(pkgerrors.CodeStateConflict, "seat word kept changing during release")
}
