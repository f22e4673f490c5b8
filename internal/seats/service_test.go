package seats

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/railtix/ticketing-backend/internal/seatmap"
	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/pkg/db/models"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAssignClaimsFirstFreeSeat(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	carriage := seedCarriage(t, db, 12, "01", 2)
	seatA := seedSeat(t, db, carriage.CarriageID, "1A")
	seatB := seedSeat(t, db, carriage.CarriageID, "1B")

	got, err := svc.Assign(ctx, 12, 2, 3, 1, 3)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.SeatID != seatA.SeatID || got.SeatNumber != "1A" || got.CarriageNumber != "01" {
		t.Fatalf("unexpected assignment %+v", got)
	}

	var stored models.Seat
	if err := db.First(&stored, "seat_id = ?", seatA.SeatID).Error; err != nil {
		t.Fatalf("reload seat: %v", err)
	}
	if stored.Word(3) != seatmap.Mask(1, 3) {
		t.Fatalf("expected word %d, got %d", seatmap.Mask(1, 3), stored.Word(3))
	}

	// same leg again lands on the next seat
	got, err = svc.Assign(ctx, 12, 2, 3, 1, 3)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if got.SeatID != seatB.SeatID {
		t.Fatalf("expected second seat, got %+v", got)
	}
}

func TestAssignSharesSeatAcrossDisjointLegs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	carriage := seedCarriage(t, db, 12, "01", 2)
	seat := seedSeat(t, db, carriage.CarriageID, "1A")

	if _, err := svc.Assign(ctx, 12, 2, 3, 1, 3); err != nil {
		t.Fatalf("first leg: %v", err)
	}
	got, err := svc.Assign(ctx, 12, 2, 3, 3, 5)
	if err != nil {
		t.Fatalf("second leg: %v", err)
	}
	if got.SeatID != seat.SeatID {
		t.Fatalf("back-to-back legs should share the seat")
	}

	var stored models.Seat
	if err := db.First(&stored, "seat_id = ?", seat.SeatID).Error; err != nil {
		t.Fatalf("reload seat: %v", err)
	}
	if stored.Word(3) != seatmap.Mask(1, 3)|seatmap.Mask(3, 5) {
		t.Fatalf("unexpected combined word %d", stored.Word(3))
	}
}

func TestAssignIsolatesDates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	carriage := seedCarriage(t, db, 12, "01", 2)
	seat := seedSeat(t, db, carriage.CarriageID, "1A")

	if _, err := svc.Assign(ctx, 12, 2, 3, 1, 3); err != nil {
		t.Fatalf("day 3: %v", err)
	}
	got, err := svc.Assign(ctx, 12, 2, 4, 1, 3)
	if err != nil {
		t.Fatalf("day 4: %v", err)
	}
	if got.SeatID != seat.SeatID {
		t.Fatalf("different dates should not contend for the seat")
	}
}

func TestAssignExhaustedReturnsSeatAssignmentError(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	carriage := seedCarriage(t, db, 12, "01", 2)
	seedSeat(t, db, carriage.CarriageID, "1A")

	if _, err := svc.Assign(ctx, 12, 2, 3, 1, 3); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	_, err := svc.Assign(ctx, 12, 2, 3, 2, 4)
	if !pkgerrors.HasCode(err, pkgerrors.CodeSeatAssignment) {
		t.Fatalf("expected seat assignment failure, got %v", err)
	}
}

func TestAssignRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	if _, err := svc.Assign(ctx, 12, 2, 3, 3, 3); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty interval, got %v", err)
	}
	if _, err := svc.Assign(ctx, 12, 2, 11, 1, 3); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for date index, got %v", err)
	}
}

func TestReleaseFreesLegAndIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	carriage := seedCarriage(t, db, 12, "01", 2)
	seat := seedSeat(t, db, carriage.CarriageID, "1A")

	got, err := svc.Assign(ctx, 12, 2, 3, 1, 3)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := svc.Release(ctx, 12, 2, 3, 1, 3, got.CarriageNumber, got.SeatNumber); err != nil {
		t.Fatalf("release: %v", err)
	}
	var stored models.Seat
	if err := db.First(&stored, "seat_id = ?", seat.SeatID).Error; err != nil {
		t.Fatalf("reload seat: %v", err)
	}
	if stored.Word(3) != 0 {
		t.Fatalf("expected cleared word, got %d", stored.Word(3))
	}

	// releasing again must not fail
	if err := svc.Release(ctx, 12, 2, 3, 1, 3, got.CarriageNumber, got.SeatNumber); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestReleaseUnknownCarriage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db)

	seedCarriage(t, db, 12, "01", 2)

	err := svc.Release(ctx, 12, 2, 3, 1, 3, "09", "1A")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCompareAndSetWordDetectsRace(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	carriage := seedCarriage(t, db, 12, "01", 2)
	seat := seedSeat(t, db, carriage.CarriageID, "1A")

	ok, err := repo.CompareAndSetWord(ctx, seat.SeatID, 1, 0, seatmap.Mask(1, 2))
	if err != nil || !ok {
		t.Fatalf("first cas: ok=%v err=%v", ok, err)
	}

	// stale observed value loses
	ok, err = repo.CompareAndSetWord(ctx, seat.SeatID, 1, 0, seatmap.Mask(2, 3))
	if err != nil {
		t.Fatalf("second cas: %v", err)
	}
	if ok {
		t.Fatalf("stale cas should fail")
	}
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	logg := logger.New(logger.Options{Output: &bytes.Buffer{}, Level: zerolog.ErrorLevel, ServiceName: "seats-test"})
	svc, err := NewService(NewRepository(db), stations.NewRepository(db), logg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedCarriage(t *testing.T, db *gorm.DB, trainID int, number string, typeID int) *models.TrainCarriage {
	t.Helper()
	carriage := models.TrainCarriage{TrainID: trainID, CarriageNumber: number, TypeID: typeID}
	if err := db.Create(&carriage).Error; err != nil {
		t.Fatalf("seed carriage: %v", err)
	}
	return &carriage
}

func seedSeat(t *testing.T, db *gorm.DB, carriageID int64, number string) *models.Seat {
	t.Helper()
	seat := models.Seat{CarriageID: carriageID, SeatNumber: number}
	if err := db.Create(&seat).Error; err != nil {
		t.Fatalf("seed seat: %v", err)
	}
	return &seat
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:seats_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.TrainCarriage{}, &models.Seat{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
