// Package stock is the fast tier of the two-tier seat ledger: plain Redis
// counters, one per sellable leg, mutated atomically by Lua scripts.
// Admission control decrements here; the durable ledger catches up through
// reconciliation.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/railtix/ticketing-backend/internal/inventory"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// Script results share one convention: 1 applied, 0 insufficient stock,
// -1 missing key, -2 invalid quantity, -3 corrupt counter value.
const (
	scriptApplied      = 1
	scriptInsufficient = 0
	scriptMissingKey   = -1
	scriptBadQuantity  = -2
	scriptBadValue     = -3
)

const decrementScript = `
local value = redis.call('GET', KEYS[1])
if value == false then
  return -1
end
local stock = tonumber(value)
if stock == nil then
  return -3
end
local qty = tonumber(ARGV[1])
if qty == nil or qty <= 0 then
  return -2
end
if stock < qty then
  return 0
end
redis.call('DECRBY', KEYS[1], qty)
return 1
`

const incrementScript = `
local value = redis.call('GET', KEYS[1])
if value == false then
  return -1
end
if tonumber(value) == nil then
  return -3
end
local qty = tonumber(ARGV[1])
if qty == nil or qty <= 0 then
  return -2
end
redis.call('INCRBY', KEYS[1], qty)
return 1
`

// Store is the Redis surface the controller needs.
type Store interface {
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	StockKey(trainID int, departureStopID, arrivalStopID int64, travelDate time.Time, carriageTypeID int) string
	StockKeyPattern() string
}

// Controller mutates leg counters.
type Controller struct {
	store Store
	logg  *logger.Logger
}

// NewController builds the stock controller.
func NewController(store Store, logg *logger.Logger) (*Controller, error) {
	if store == nil {
		return nil, errors.New("redis store is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Controller{store: store, logg: logg}, nil
}

// Decrement atomically takes qty seats from a leg counter. Insufficient
// stock is a sold-out error; a missing counter means the leg was never
// seeded into the cache.
func (c *Controller) Decrement(ctx context.Context, key inventory.Key, qty int) error {
	return c.eval(ctx, decrementScript, key, qty)
}

// Increment atomically returns qty seats to a leg counter. Used by booking
// rollback, fulfillment compensation and refunds.
func (c *Controller) Increment(ctx context.Context, key inventory.Key, qty int) error {
	return c.eval(ctx, incrementScript, key, qty)
}

func (c *Controller) eval(ctx context.Context, script string, key inventory.Key, qty int) error {
	redisKey := c.keyOf(key)
	res, err := c.store.Eval(ctx, script, []string{redisKey}, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock script failed")
	}

	code, ok := res.(int64)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, "unexpected stock script result").
			WithDetails(map[string]any{"result": fmt.Sprint(res)})
	}

	switch code {
	case scriptApplied:
		return nil
	case scriptInsufficient:
		return pkgerrors.New(pkgerrors.CodeStockOut, "not enough seats left").
			WithDetails(map[string]any{"key": redisKey, "qty": qty})
	case scriptMissingKey:
		return pkgerrors.New(pkgerrors.CodeInventoryMiss, "leg counter not cached").
			WithDetails(map[string]any{"key": redisKey})
	case scriptBadQuantity:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"qty": qty})
	case scriptBadValue:
		c.logg.Warn(c.logg.WithField(ctx, "key", redisKey), "leg counter corrupted")
		return pkgerrors.New(pkgerrors.CodeInternal, "leg counter holds a non-numeric value").
			WithDetails(map[string]any{"key": redisKey})
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown stock script code").
			WithDetails(map[string]any{"code": code})
	}
}

// Count reads a leg counter. The second return is false when the counter is
// not cached.
func (c *Controller) Count(ctx context.Context, key inventory.Key) (int, bool, error) {
	value, err := c.store.Get(ctx, c.keyOf(key))
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading leg counter")
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, pkgerrors.New(pkgerrors.CodeInternal, "leg counter holds a non-numeric value").
			WithDetails(map[string]any{"value": value})
	}
	return count, true, nil
}

// CountByKey reads a counter by its raw Redis key, used by reconciliation
// after a keyspace scan.
func (c *Controller) CountByKey(ctx context.Context, redisKey string) (int, bool, error) {
	value, err := c.store.Get(ctx, redisKey)
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading leg counter")
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, pkgerrors.New(pkgerrors.CodeInternal, "leg counter holds a non-numeric value").
			WithDetails(map[string]any{"key": redisKey})
	}
	return count, true, nil
}

// Seed overwrites a leg counter, used by the cache restore job.
func (c *Controller) Seed(ctx context.Context, key inventory.Key, count int) error {
	if count < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "count must not be negative")
	}
	if err := c.store.Set(ctx, c.keyOf(key), count, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seeding leg counter")
	}
	return nil
}

// Keys lists every cached leg counter key.
func (c *Controller) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.store.ScanKeys(ctx, c.store.StockKeyPattern())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scanning leg counters")
	}
	return keys, nil
}

func (c *Controller) keyOf(key inventory.Key) string {
	return c.store.StockKey(key.TrainID, key.DepartureStopID, key.ArrivalStopID, key.Day(), key.CarriageTypeID)
}
