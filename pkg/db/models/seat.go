package models

// Seat is one physical seat with its rolling occupancy window: ten 64-bit
// words, one per calendar date, each holding interval-mask bits. The words
// are only ever mutated through the seat occupancy store.
type Seat struct {
	SeatID     int64  `gorm:"column:seat_id;primaryKey;autoIncrement"`
	CarriageID int64  `gorm:"column:carriage_id;not null;index"`
	SeatNumber string `gorm:"column:seat_number;size:10;not null"`
	SeatType   string `gorm:"column:seat_type;size:10"`

	Date1  uint64 `gorm:"column:date_1;not null;default:0"`
	Date2  uint64 `gorm:"column:date_2;not null;default:0"`
	Date3  uint64 `gorm:"column:date_3;not null;default:0"`
	Date4  uint64 `gorm:"column:date_4;not null;default:0"`
	Date5  uint64 `gorm:"column:date_5;not null;default:0"`
	Date6  uint64 `gorm:"column:date_6;not null;default:0"`
	Date7  uint64 `gorm:"column:date_7;not null;default:0"`
	Date8  uint64 `gorm:"column:date_8;not null;default:0"`
	Date9  uint64 `gorm:"column:date_9;not null;default:0"`
	Date10 uint64 `gorm:"column:date_10;not null;default:0"`
}

func (Seat) TableName() string { return "seats" }

// OccupancyWords is the size of the rolling date window.
const OccupancyWords = 10

// Word returns the raw occupancy word for a 1-based date index, or 0 for an
// out-of-window index.
func (s *Seat) Word(dateIndex int) uint64 {
	switch dateIndex {
	case 1:
		return s.Date1
	case 2:
		return s.Date2
	case 3:
		return s.Date3
	case 4:
		return s.Date4
	case 5:
		return s.Date5
	case 6:
		return s.Date6
	case 7:
		return s.Date7
	case 8:
		return s.Date8
	case 9:
		return s.Date9
	case 10:
		return s.Date10
	}
	return 0
}

// SetWord overwrites the raw occupancy word for a 1-based date index.
// Out-of-window indexes are ignored.
func (s *Seat) SetWord(dateIndex int, word uint64) {
	switch dateIndex {
	case 1:
		s.Date1 = word
	case 2:
		s.Date2 = word
	case 3:
		s.Date3 = word
	case 4:
		s.Date4 = word
	case 5:
		s.Date5 = word
	case 6:
		s.Date6 = word
	case 7:
		s.Date7 = word
	case 8:
		s.Date8 = word
	case 9:
		s.Date9 = word
	case 10:
		s.Date10 = word
	}
}

// WordColumn maps a 1-based date index to its column name, used for guarded
// single-column updates. Returns "" for out-of-window indexes.
func WordColumn(dateIndex int) string {
	switch dateIndex {
	case 1:
		return "date_1"
	case 2:
		return "date_2"
	case 3:
		return "date_3"
	case 4:
		return "date_4"
	case 5:
		return "date_5"
	case 6:
		return "date_6"
	case 7:
		return "date_7"
	case 8:
		return "date_8"
	case 9:
		return "date_9"
	case 10:
		return "date_10"
	}
	return ""
}
