package stations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/railtix/ticketing-backend/pkg/db/models"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestStopLookup(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	dep := strPtr("08:05")
	arr := strPtr("08:00")
	seedStops := []models.TrainStop{
		{TrainID: 12, StationID: 900, SequenceNumber: 1, DepartureTime: strPtr("07:00")},
		{TrainID: 12, StationID: 901, SequenceNumber: 2, ArrivalTime: arr, DepartureTime: dep},
		{TrainID: 12, StationID: 902, SequenceNumber: 3, ArrivalTime: strPtr("09:30")},
	}
	for i := range seedStops {
		if err := db.Create(&seedStops[i]).Error; err != nil {
			t.Fatalf("seed stop: %v", err)
		}
	}

	stop, err := repo.Stop(ctx, 12, seedStops[1].StopID)
	if err != nil {
		t.Fatalf("stop lookup: %v", err)
	}
	if stop.SequenceNumber != 2 {
		t.Fatalf("expected sequence 2, got %d", stop.SequenceNumber)
	}
	if stop.ArrivalTime == nil || *stop.ArrivalTime != "08:00" {
		t.Fatalf("unexpected arrival time %+v", stop.ArrivalTime)
	}

	if _, err := repo.Stop(ctx, 99, seedStops[1].StopID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found for wrong train, got %v", err)
	}
}

func TestStopsForTrainOrdered(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	for _, seq := range []int{3, 1, 2} {
		stop := models.TrainStop{TrainID: 7, StationID: int64(100 + seq), SequenceNumber: seq}
		if err := db.Create(&stop).Error; err != nil {
			t.Fatalf("seed stop: %v", err)
		}
	}

	stops, err := repo.StopsForTrain(ctx, 7)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(stops))
	}
	for i, stop := range stops {
		if stop.SequenceNumber != i+1 {
			t.Fatalf("stops out of order: %+v", stops)
		}
	}
}

func TestCarriagesForTrainFiltersByClass(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	seed := []models.TrainCarriage{
		{TrainID: 7, CarriageNumber: "01", TypeID: 1},
		{TrainID: 7, CarriageNumber: "02", TypeID: 2},
		{TrainID: 7, CarriageNumber: "03", TypeID: 2},
		{TrainID: 8, CarriageNumber: "01", TypeID: 2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed carriage: %v", err)
		}
	}

	carriages, err := repo.CarriagesForTrain(ctx, 7, 2)
	if err != nil {
		t.Fatalf("list carriages: %v", err)
	}
	if len(carriages) != 2 {
		t.Fatalf("expected 2 carriages, got %d", len(carriages))
	}
	if carriages[0].CarriageNumber != "02" || carriages[1].CarriageNumber != "03" {
		t.Fatalf("unexpected carriages %+v", carriages)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stations_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.TrainStop{}, &models.TrainCarriage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }
