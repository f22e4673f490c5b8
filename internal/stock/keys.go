package stock

import (
	"strconv"
	"strings"
	"time"

	"github.com/railtix/ticketing-backend/internal/inventory"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/redis"
)

// ParseKey recovers the inventory key from a raw leg counter key of the form
// <ns>:stock:<train>:<departure>:<arrival>:<date>:<class>.
func ParseKey(redisKey string) (inventory.Key, error) {
	parts := strings.Split(redisKey, ":")
	if len(parts) != 7 || parts[1] != "stock" {
		return inventory.Key{}, pkgerrors.New(pkgerrors.CodeValidation, "malformed leg counter key").
			WithDetails(map[string]any{"key": redisKey})
	}

	trainID, err := strconv.Atoi(parts[2])
	if err != nil {
		return inventory.Key{}, badKeySegment(redisKey, "train")
	}
	departure, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return inventory.Key{}, badKeySegment(redisKey, "departure stop")
	}
	arrival, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return inventory.Key{}, badKeySegment(redisKey, "arrival stop")
	}
	travelDate, err := time.Parse(redis.StockDateLayout, parts[5])
	if err != nil {
		return inventory.Key{}, badKeySegment(redisKey, "travel date")
	}
	carriageTypeID, err := strconv.Atoi(parts[6])
	if err != nil {
		return inventory.Key{}, badKeySegment(redisKey, "carriage type")
	}

	return inventory.Key{
		TrainID:         trainID,
		DepartureStopID: departure,
		ArrivalStopID:   arrival,
		TravelDate:      travelDate,
		CarriageTypeID:  carriageTypeID,
	}, nil
}

func badKeySegment(redisKey, segment string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "malformed leg counter key").
		WithDetails(map[string]any{"key": redisKey, "segment": segment})
}
