// Package ledger keeps a per-client booking history and saved-vehicles list
// next to, but independent of, the order store. Storage failures are logged
// and swallowed so they never reach the order or billing paths.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"booking/internal/domain"
	"booking/internal/logger"
	"booking/internal/metrics"
	"booking/internal/redis"
)

const (
	lockTTL   = 5 * time.Second
	lockWait  = 2 * time.Second
	lockRetry = 25 * time.Millisecond

	dedupeBucket = 10 * time.Second
)

// orderNumberAlphabet is Crockford's base-32 alphabet.
const orderNumberAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var errLockBusy = errors.New("ledger lock busy")

// Ledger stores client ledgers as JSON arrays, one key per list, rewritten
// whole on every mutation under a short lock.
type Ledger struct {
	store  redis.LedgerStoreInterface
	locks  redis.LockStoreInterface
	logger *zap.Logger
	clock  func() time.Time
}

// New creates a Ledger. locks is optional; without it mutations are not
// serialized across writers.
func New(store redis.LedgerStoreInterface, locks redis.LockStoreInterface, log *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		locks:  locks,
		logger: logger.OrNop(log),
		clock:  time.Now,
	}
}

// WithClock replaces the time source.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

func transactionsKey(clientID string) string {
	return "ledger:" + clientID + ":transactions"
}

func vehiclesKey(clientID string) string {
	return "ledger:" + clientID + ":vehicles"
}

// SaveTransaction records a booking at the head of the client's ledger and
// returns the entry, or nil if it could not be stored. An entry already
// carrying the same order id is replaced in place.
func (l *Ledger) SaveTransaction(ctx context.Context, clientID string, data BookingData) *Transaction {
	number, err := newOrderNumber()
	if err != nil {
		l.fail("save_transaction", clientID, err)
		return nil
	}

	entry := Transaction{
		ID:          uuid.New().String(),
		OrderID:     data.OrderID,
		OrderNumber: number,
		Timestamp:   l.clock().UTC(),
		Status:      StatusPending,
		VehicleID:   data.VehicleID,
		Vehicle:     data.Vehicle,
		Destination: data.Destination,
		PickupTime:  data.PickupTime,
		ServiceType: data.Session.ServiceType(),
		Cost:        PlaceholderCost,
		Notes:       data.Notes,
	}

	stored := modify(ctx, l, transactionsKey(clientID), "save_transaction", func(list []Transaction) ([]Transaction, bool) {
		if entry.OrderID != "" {
			for i := range list {
				if list[i].OrderID == entry.OrderID {
					entry.ID = list[i].ID
					entry.OrderNumber = list[i].OrderNumber
					list[i] = entry
					return list, true
				}
			}
		}
		return append([]Transaction{entry}, list...), true
	})
	if !stored {
		return nil
	}
	return &entry
}

// GetTransactions returns the client's ledger, newest first.
func (l *Ledger) GetTransactions(ctx context.Context, clientID string) []Transaction {
	list, err := load[Transaction](ctx, l.store, transactionsKey(clientID))
	if err != nil {
		l.fail("get_transactions", clientID, err)
		return []Transaction{}
	}
	return list
}

// GetTransactionByID returns one entry, or nil if absent.
func (l *Ledger) GetTransactionByID(ctx context.Context, clientID, id string) *Transaction {
	for _, t := range l.GetTransactions(ctx, clientID) {
		if t.ID == id {
			return &t
		}
	}
	return nil
}

// UpdateTransactionStatus sets an entry's status and merges extra into it.
// An absent id is a no-op and returns nil.
func (l *Ledger) UpdateTransactionStatus(ctx context.Context, clientID, id, status string, extra TransactionPatch) *Transaction {
	extra.Status = &status
	return l.UpdateTransaction(ctx, clientID, id, extra)
}

// UpdateTransaction merges patch into an entry. An absent id is a no-op and
// returns nil.
func (l *Ledger) UpdateTransaction(ctx context.Context, clientID, id string, patch TransactionPatch) *Transaction {
	var updated *Transaction
	stored := modify(ctx, l, transactionsKey(clientID), "update_transaction", func(list []Transaction) ([]Transaction, bool) {
		for i := range list {
			if list[i].ID == id {
				patch.apply(&list[i])
				t := list[i]
				updated = &t
				return list, true
			}
		}
		return list, false
	})
	if !stored {
		return nil
	}
	return updated
}

// MirrorOrder copies a remote order's status, rating and tip onto the ledger
// entry carrying its id. Reports whether an entry was updated.
func (l *Ledger) MirrorOrder(ctx context.Context, clientID string, order *domain.Order) bool {
	if order == nil || order.ID == "" {
		return false
	}
	status := order.Status.String()
	var mirrored bool
	stored := modify(ctx, l, transactionsKey(clientID), "mirror_order", func(list []Transaction) ([]Transaction, bool) {
		for i := range list {
			if list[i].OrderID != order.ID {
				continue
			}
			changed := list[i].Status != status
			list[i].Status = status
			if d := order.DriverInfo; d != nil {
				if d.Rating != nil && !sameFloat(list[i].Rating, d.Rating) {
					list[i].Rating = d.Rating
					changed = true
				}
				if d.Tip != nil && !sameFloat(list[i].Tip, d.Tip) {
					list[i].Tip = d.Tip
					changed = true
				}
			}
			mirrored = changed
			return list, changed
		}
		return list, false
	})
	return stored && mirrored
}

// RemoveDuplicateTransactions drops entries that repeat an earlier one and
// returns how many were dropped. Entries carrying an order id are compared by
// it; older entries without one fall back to vehicle, destination and a
// 10-second time bucket.
func (l *Ledger) RemoveDuplicateTransactions(ctx context.Context, clientID string) int {
	removed := 0
	stored := modify(ctx, l, transactionsKey(clientID), "remove_duplicates", func(list []Transaction) ([]Transaction, bool) {
		seen := make(map[string]struct{}, len(list))
		kept := make([]Transaction, 0, len(list))
		for _, t := range list {
			key := dedupeKey(t)
			if _, dup := seen[key]; dup {
				removed++
				continue
			}
			seen[key] = struct{}{}
			kept = append(kept, t)
		}
		return kept, removed > 0
	})
	if !stored {
		return 0
	}
	return removed
}

func sameFloat(a, b *float64) bool {
	return a != nil && b != nil && *a == *b
}

func dedupeKey(t Transaction) string {
	if t.OrderID != "" {
		return "order:" + t.OrderID
	}
	bucket := t.Timestamp.Round(dedupeBucket).Unix()
	return fmt.Sprintf("legacy:%s|%s|%d", t.VehicleID, t.Destination, bucket)
}

// GetVehicles returns the client's saved vehicles.
func (l *Ledger) GetVehicles(ctx context.Context, clientID string) []Vehicle {
	list, err := load[Vehicle](ctx, l.store, vehiclesKey(clientID))
	if err != nil {
		l.fail("get_vehicles", clientID, err)
		return []Vehicle{}
	}
	return list
}

// SaveVehicle adds a vehicle or replaces the one with the same id. A vehicle
// without an id gets one. Returns nil if the vehicle could not be stored.
func (l *Ledger) SaveVehicle(ctx context.Context, clientID string, v Vehicle) *Vehicle {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	stored := modify(ctx, l, vehiclesKey(clientID), "save_vehicle", func(list []Vehicle) ([]Vehicle, bool) {
		for i := range list {
			if list[i].ID == v.ID {
				list[i] = v
				return list, true
			}
		}
		return append(list, v), true
	})
	if !stored {
		return nil
	}
	return &v
}

// RemoveVehicle deletes a saved vehicle. Reports whether one was removed.
func (l *Ledger) RemoveVehicle(ctx context.Context, clientID, id string) bool {
	var removed bool
	stored := modify(ctx, l, vehiclesKey(clientID), "remove_vehicle", func(list []Vehicle) ([]Vehicle, bool) {
		for i := range list {
			if list[i].ID == id {
				removed = true
				return append(list[:i], list[i+1:]...), true
			}
		}
		return list, false
	})
	return stored && removed
}

// load decodes the list stored under key. A missing key is an empty list.
func load[T any](ctx context.Context, store redis.LedgerStoreInterface, key string) ([]T, error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return []T{}, err
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return []T{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// modify runs a read-modify-write of the list under key while holding its
// lock. fn reports whether the list changed; unchanged lists are not written.
// Malformed stored data is treated as an empty list. Reports whether a changed
// list was written.
func modify[T any](ctx context.Context, l *Ledger, key, op string, fn func([]T) ([]T, bool)) bool {
	unlock, err := l.lock(ctx, key)
	if err != nil {
		l.fail(op, key, err)
		return false
	}
	defer unlock()

	list, err := load[T](ctx, l.store, key)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
			l.fail(op, key, err)
			return false
		}
		l.logger.Warn("discarding malformed ledger data", zap.String("key", key), zap.Error(err))
	}

	list, changed := fn(list)
	if !changed {
		return false
	}

	data, err := json.Marshal(list)
	if err != nil {
		l.fail(op, key, err)
		return false
	}
	if err := l.store.Save(ctx, key, data); err != nil {
		l.fail(op, key, err)
		return false
	}
	return true
}

func (l *Ledger) lock(ctx context.Context, key string) (func(), error) {
	if l.locks == nil {
		return func() {}, nil
	}

	deadline := time.Now().Add(lockWait)
	for {
		ok, err := l.locks.Acquire(ctx, key, lockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if err := l.locks.Release(context.WithoutCancel(ctx), key); err != nil {
					l.logger.Warn("ledger lock release failed", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, errLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

func (l *Ledger) fail(op, target string, err error) {
	metrics.LedgerFailure(op)
	l.logger.Warn("ledger operation failed",
		zap.String("op", op),
		zap.String("target", target),
		zap.Error(err),
	)
}

func newOrderNumber() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = orderNumberAlphabet[int(c)%len(orderNumberAlphabet)]
	}
	return "BK-" + string(out), nil
}
