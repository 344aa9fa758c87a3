package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"orderboard/internal/domain"
	apperrors "orderboard/internal/errors"
)

// fakeStore is an in-memory stand-in for the two tables. WithinTx serializes
// transactions and restores a snapshot when fn fails, like a rollback would.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	counter int64
	orders  map[uint64]*domain.Order
	nextID  uint64
	clock   time.Time

	txCount      int
	storageCalls int
	allocateErr  error
	insertErr    error
	listErr      error
	updateErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[uint64]*domain.Order),
		clock:  time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, q sqlx.ExtContext) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	f.txCount++
	savedCounter, savedNextID := f.counter, f.nextID
	saved := make(map[uint64]domain.Order, len(f.orders))
	for id, o := range f.orders {
		saved[id] = *o
	}
	f.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		f.mu.Lock()
		f.counter, f.nextID = savedCounter, savedNextID
		f.orders = make(map[uint64]*domain.Order, len(saved))
		for id, o := range saved {
			o := o
			f.orders[id] = &o
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) AllocateNext(ctx context.Context, q sqlx.ExtContext) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	if f.allocateErr != nil {
		return 0, f.allocateErr
	}
	f.counter++
	return f.counter, nil
}

func (f *fakeStore) Current(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	return f.counter, nil
}

func (f *fakeStore) Insert(ctx context.Context, q sqlx.ExecerContext, orderNumber int64, quantity int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	f.orders[f.nextID] = &domain.Order{
		ID:          f.nextID,
		OrderNumber: orderNumber,
		Quantity:    quantity,
		Status:      domain.OrderStatusPending,
		CreatedAt:   f.clock,
	}
	return f.nextID, nil
}

func (f *fakeStore) FindByID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) FindActiveByID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	o, ok := f.active(id)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) FindActiveByIDForUpdate(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error) {
	return f.FindActiveByID(ctx, q, id)
}

func (f *fakeStore) ListActive(ctx context.Context, q sqlx.QueryerContext) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	orders := []domain.Order{}
	for _, o := range f.orders {
		if o.DeletedAt == nil && o.Status.IsActive() {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, q sqlx.ExecerContext, id uint64, status domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	o, ok := f.active(id)
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	o.Status = status
	return nil
}

func (f *fakeStore) UpdateQuantity(ctx context.Context, q sqlx.ExecerContext, id uint64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	o, ok := f.active(id)
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	o.Quantity = quantity
	return nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, q sqlx.ExecerContext, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	o, ok := f.active(id)
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	now := f.clock.Add(time.Minute)
	o.DeletedAt = &now
	return nil
}

func (f *fakeStore) HardDelete(ctx context.Context, q sqlx.ExecerContext, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	if _, ok := f.active(id); !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeStore) CountActiveByStatus(ctx context.Context, q sqlx.QueryerContext) (map[domain.OrderStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageCalls++
	counts := map[domain.OrderStatus]int{domain.OrderStatusPending: 0, domain.OrderStatusReady: 0}
	for _, o := range f.orders {
		if o.DeletedAt == nil && o.Status.IsActive() {
			counts[o.Status]++
		}
	}
	return counts, nil
}

func (f *fakeStore) active(id uint64) (*domain.Order, bool) {
	o, ok := f.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, false
	}
	return o, true
}

func (f *fakeStore) counterValue() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storageCalls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (n *recordingNotifier) Publish(event domain.OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) all() []domain.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OrderEvent(nil), n.events...)
}
