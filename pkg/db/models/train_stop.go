package models

// TrainStop is one scheduled stop on a train's route. Sequence numbers are
// 1-based and feed the interval mask codec; times of day are "HH:MM" strings
// and may be absent at route endpoints.
type TrainStop struct {
	StopID         int64   `gorm:"column:stop_id;primaryKey;autoIncrement"`
	TrainID        int     `gorm:"column:train_id;not null;index"`
	StationID      int64   `gorm:"column:station_id;not null"`
	SequenceNumber int     `gorm:"column:sequence_number;not null"`
	ArrivalTime    *string `gorm:"column:arrival_time;size:8"`
	DepartureTime  *string `gorm:"column:departure_time;size:8"`
}

func (TrainStop) TableName() string { return "train_stops" }

// TrainCarriage links physical carriages to a train and a seating class.
type TrainCarriage struct {
	CarriageID     int64  `gorm:"column:carriage_id;primaryKey;autoIncrement"`
	TrainID        int    `gorm:"column:train_id;not null;index"`
	CarriageNumber string `gorm:"column:carriage_number;size:10;not null"`
	TypeID         int    `gorm:"column:type_id;not null"`
}

func (TrainCarriage) TableName() string { return "train_carriages" }
