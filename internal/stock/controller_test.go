package stock

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/railtix/ticketing-backend/internal/inventory"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testKey() inventory.Key {
	return inventory.Key{
		TrainID:         12,
		DepartureStopID: 101,
		ArrivalStopID:   104,
		TravelDate:      time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		CarriageTypeID:  2,
	}
}

func TestDecrementHappyPath(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctrl := newTestController(t, store)
	ctx := context.Background()
	key := testKey()

	if err := ctrl.Seed(ctx, key, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := ctrl.Decrement(ctx, key, 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	count, found, err := ctrl.Count(ctx, key)
	if err != nil || !found {
		t.Fatalf("count: found=%v err=%v", found, err)
	}
	if count != 2 {
		t.Fatalf("expected 2 left, got %d", count)
	}
}

func TestDecrementInsufficientStock(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctrl := newTestController(t, store)
	ctx := context.Background()
	key := testKey()

	if err := ctrl.Seed(ctx, key, 2); err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := ctrl.Decrement(ctx, key, 3)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStockOut) {
		t.Fatalf("expected stock-out, got %v", err)
	}

	// the counter must be untouched after a refused decrement
	count, _, err := ctrl.Count(ctx, key)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 left, got %d", count)
	}
}

func TestDecrementMissingCounter(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, newFakeStore())
	err := ctrl.Decrement(context.Background(), testKey(), 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInventoryMiss) {
		t.Fatalf("expected inventory miss, got %v", err)
	}
}

func TestDecrementRejectsBadQuantity(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctrl := newTestController(t, store)
	ctx := context.Background()
	key := testKey()

	if err := ctrl.Seed(ctx, key, 2); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := ctrl.Decrement(ctx, key, 0); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := ctrl.Decrement(ctx, key, -2); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecrementCorruptCounter(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctrl := newTestController(t, store)
	ctx := context.Background()
	key := testKey()

	store.data[store.StockKey(key.TrainID, key.DepartureStopID, key.ArrivalStopID, key.Day(), key.CarriageTypeID)] = "garbage"
	if err := ctrl.Decrement(ctx, key, 1); !pkgerrors.HasCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestIncrementRestoresSeats(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctrl := newTestController(t, store)
	ctx := context.Background()
	key := testKey()

	if err := ctrl.Seed(ctx, key, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := ctrl.Decrement(ctx, key, 4); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := ctrl.Increment(ctx, key, 4); err != nil {
		t.Fatalf("increment: %v", err)
	}

	count, _, err := ctrl.Count(ctx, key)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 after compensation, got %d", count)
	}
}

func TestIncrementMissingCounter(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, newFakeStore())
	err := ctrl.Increment(context.Background(), testKey(), 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInventoryMiss) {
		t.Fatalf("expected inventory miss, got %v", err)
	}
}

func TestCountMissingCounter(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, newFakeStore())
	_, found, err := ctrl.Count(context.Background(), testKey())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if found {
		t.Fatalf("expected missing counter")
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	key := testKey()
	redisKey := store.StockKey(key.TrainID, key.DepartureStopID, key.ArrivalStopID, key.Day(), key.CarriageTypeID)

	parsed, err := ParseKey(redisKey)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.TrainID != key.TrainID ||
		parsed.DepartureStopID != key.DepartureStopID ||
		parsed.ArrivalStopID != key.ArrivalStopID ||
		parsed.CarriageTypeID != key.CarriageTypeID ||
		!parsed.Day().Equal(key.Day()) {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, key)
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"rtx:stock:12:101:104:2025-07-03",
		"rtx:lock:reconcile",
		"rtx:stock:x:101:104:2025-07-03:2",
		"rtx:stock:12:101:104:notadate:2",
	} {
		if _, err := ParseKey(raw); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", raw, err)
		}
	}
}

func newTestController(t *testing.T, store Store) *Controller {
	t.Helper()
	logg := logger.New(logger.Options{Output: &bytes.Buffer{}, Level: zerolog.ErrorLevel, ServiceName: "stock-test"})
	ctrl, err := NewController(store, logg)
	if err != nil {
		t.Fatalf("build controller: %v", err)
	}
	return ctrl
}

// fakeStore mirrors the Lua script semantics against an in-memory map.
type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	key := keys[0]
	value, exists := f.data[key]
	if !exists {
		return int64(-1), nil
	}
	current, err := strconv.Atoi(value)
	if err != nil {
		return int64(-3), nil
	}
	qty, err := strconv.Atoi(fmt.Sprint(args[0]))
	if err != nil || qty <= 0 {
		return int64(-2), nil
	}
	if strings.Contains(script, "DECRBY") {
		if current < qty {
			return int64(0), nil
		}
		f.data[key] = strconv.Itoa(current - qty)
		return int64(1), nil
	}
	f.data[key] = strconv.Itoa(current + qty)
	return int64(1), nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	value, exists := f.data[key]
	if !exists {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) StockKey(trainID int, departureStopID, arrivalStopID int64, travelDate time.Time, carriageTypeID int) string {
	return fmt.Sprintf("rtx:stock:%d:%d:%d:%s:%d", trainID, departureStopID, arrivalStopID, travelDate.Format("2006-01-02"), carriageTypeID)
}

func (f *fakeStore) StockKeyPattern() string {
	return "rtx:stock:*"
}
