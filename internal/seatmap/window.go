package seatmap

import "time"

// DateIndex maps a travel date onto the rolling occupancy window anchored at
// base. The first window day is index 1; dates before base or past the
// window return -1.
func DateIndex(base, travelDate time.Time) int {
	baseDay := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
	travelDay := time.Date(travelDate.Year(), travelDate.Month(), travelDate.Day(), 0, 0, 0, 0, time.UTC)

	days := int(travelDay.Sub(baseDay).Hours() / 24)
	idx := days + 1
	if idx < 1 || idx > WindowDays {
		return -1
	}
	return idx
}
