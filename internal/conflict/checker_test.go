package conflict

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/pkg/db/models"
	"github.com/railtix/ticketing-backend/pkg/enums"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var travelDay = time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)

func TestCheckBoundaryTouchIsNotAConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	// train 1: 08:00 -> 10:00, train 2: 10:00 -> 12:00
	s1 := seedLeg(t, db, 1, "08:00", "10:00")
	s2 := seedLeg(t, db, 2, "10:00", "12:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("arrival meeting departure must not conflict: %+v", conflicts)
	}
}

func TestCheckOverlapDetected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	s1 := seedLeg(t, db, 1, "08:00", "10:00")
	s2 := seedLeg(t, db, 2, "09:00", "11:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", conflicts)
	}
	if conflicts[0].TrainID != 1 {
		t.Fatalf("unexpected conflicting train %d", conflicts[0].TrainID)
	}

	msg := Render(conflicts)
	if msg == "" {
		t.Fatalf("expected rendered message")
	}
}

func TestCheckSameDepartureLaterArrivalIsNotAConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	// existing ride 09:00 -> 10:00, new journey leaves at the same minute
	// but rides further
	s1 := seedLeg(t, db, 1, "09:00", "10:00")
	s2 := seedLeg(t, db, 2, "09:00", "12:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("shared departure with later arrival must not conflict: %+v", conflicts)
	}
}

func TestCheckEarlierDepartureSameArrivalIsNotAConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	// existing ride 09:00 -> 10:00, new journey departs earlier and pulls
	// in at the same minute
	s1 := seedLeg(t, db, 1, "09:00", "10:00")
	s2 := seedLeg(t, db, 2, "07:00", "10:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("earlier departure with shared arrival must not conflict: %+v", conflicts)
	}
}

func TestCheckContainedIntervalConflicts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	s1 := seedLeg(t, db, 1, "08:00", "14:00")
	s2 := seedLeg(t, db, 2, "10:00", "11:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("contained journey must conflict, got %+v", conflicts)
	}
}

func TestCheckIdenticalWindowsConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	s1 := seedLeg(t, db, 1, "08:00", "10:00")
	s2 := seedLeg(t, db, 2, "08:00", "10:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("identical windows must conflict, got %+v", conflicts)
	}
}

func TestCheckOvernightArrivalSpillsIntoNextDay(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	// overnight train riding the day before: 23:00 -> 01:00 next morning
	s1 := seedLeg(t, db, 1, "23:00", "01:00")
	s2 := seedLeg(t, db, 2, "00:30", "02:00")
	seedTicket(t, db, 55, 1, s1, travelDay.AddDate(0, 0, -1), enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("overnight overlap missed: %+v", conflicts)
	}
}

func TestCheckSkipsTicketsWithoutSchedule(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	s1 := seedLegTimes(t, db, 1, nil, nil)
	s2 := seedLeg(t, db, 2, "09:00", "11:00")
	seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("unscheduled ticket must be skipped: %+v", conflicts)
	}
}

func TestCheckIgnoresReleasedAndExcludedTickets(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	checker := newTestChecker(t, db)

	s1 := seedLeg(t, db, 1, "08:00", "10:00")
	s2 := seedLeg(t, db, 2, "09:00", "11:00")
	refunded := seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusRefunded)
	_ = refunded

	conflicts, err := checker.Check(ctx, 55, journeyOf(2, s2, travelDay), 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("refunded ticket must not conflict: %+v", conflicts)
	}

	// active ticket excluded by id, as during a ticket change
	active := seedTicket(t, db, 55, 1, s1, travelDay, enums.TicketStatusUnused)
	conflicts, err = checker.Check(ctx, 55, journeyOf(2, s2, travelDay), active.TicketID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("excluded ticket must not conflict: %+v", conflicts)
	}
}

type legStops struct {
	departureStopID int64
	arrivalStopID   int64
}

func journeyOf(trainID int, stops legStops, date time.Time) Journey {
	return Journey{
		TrainID:         trainID,
		DepartureStopID: stops.departureStopID,
		ArrivalStopID:   stops.arrivalStopID,
		TravelDate:      date,
	}
}

func seedLeg(t *testing.T, db *gorm.DB, trainID int, departs, arrives string) legStops {
	t.Helper()
	return seedLegTimes(t, db, trainID, &departs, &arrives)
}

func seedLegTimes(t *testing.T, db *gorm.DB, trainID int, departs, arrives *string) legStops {
	t.Helper()
	dep := models.TrainStop{TrainID: trainID, StationID: int64(trainID * 10), SequenceNumber: 1, DepartureTime: departs}
	if err := db.Create(&dep).Error; err != nil {
		t.Fatalf("seed departure stop: %v", err)
	}
	arr := models.TrainStop{TrainID: trainID, StationID: int64(trainID*10 + 1), SequenceNumber: 2, ArrivalTime: arrives}
	if err := db.Create(&arr).Error; err != nil {
		t.Fatalf("seed arrival stop: %v", err)
	}
	return legStops{departureStopID: dep.StopID, arrivalStopID: arr.StopID}
}

func seedTicket(t *testing.T, db *gorm.DB, passengerID int64, trainID int, stops legStops, date time.Time, status enums.TicketStatus) *models.Ticket {
	t.Helper()
	ticket := models.Ticket{
		TicketNumber:    uuid.NewString(),
		OrderID:         1,
		PassengerID:     passengerID,
		TrainID:         trainID,
		DepartureStopID: stops.departureStopID,
		ArrivalStopID:   stops.arrivalStopID,
		TravelDate:      date,
		CarriageTypeID:  2,
		Price:           decimal.NewFromInt(100),
		TicketStatus:    status,
		CreatedTime:     time.Now().UTC(),
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return &ticket
}

func newTestChecker(t *testing.T, db *gorm.DB) *Checker {
	t.Helper()
	logg := logger.New(logger.Options{Output: &bytes.Buffer{}, Level: zerolog.ErrorLevel, ServiceName: "conflict-test"})
	checker, err := NewChecker(NewRepository(db), stations.NewRepository(db), logg)
	if err != nil {
		t.Fatalf("build checker: %v", err)
	}
	return checker
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:conflict_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.TrainStop{}, &models.Ticket{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
