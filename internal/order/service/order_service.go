package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"orderboard/internal/domain"
	apperrors "orderboard/internal/errors"
	"orderboard/internal/infrastructure/mysql"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, q sqlx.ExtContext) error) error
}

type OrderRepository interface {
	Insert(ctx context.Context, q sqlx.ExecerContext, orderNumber int64, quantity int) (uint64, error)
	FindByID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error)
	FindActiveByID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error)
	FindActiveByIDForUpdate(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error)
	ListActive(ctx context.Context, q sqlx.QueryerContext) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, q sqlx.ExecerContext, id uint64, status domain.OrderStatus) error
	UpdateQuantity(ctx context.Context, q sqlx.ExecerContext, id uint64, quantity int) error
	SoftDelete(ctx context.Context, q sqlx.ExecerContext, id uint64) error
	HardDelete(ctx context.Context, q sqlx.ExecerContext, id uint64) error
	CountActiveByStatus(ctx context.Context, q sqlx.QueryerContext) (map[domain.OrderStatus]int, error)
}

type SequenceRepository interface {
	AllocateNext(ctx context.Context, q sqlx.ExtContext) (int64, error)
	Current(ctx context.Context, q sqlx.QueryerContext) (int64, error)
}

// Notifier receives an event after each committed change.
type Notifier interface {
	Publish(event domain.OrderEvent)
}

type Recorder interface {
	OrderCreated(orderNumber int64)
	StatusChanged(status domain.OrderStatus)
	OrderRemoved(mode domain.DeleteMode)
	StoreError(op string)
}

type Options struct {
	DeleteMode        domain.DeleteMode
	StrictTransitions bool
	QueryTimeout      time.Duration
}

type OrderService struct {
	db        sqlx.ExtContext
	tx        Transactor
	orderRepo OrderRepository
	seqRepo   SequenceRepository
	notifier  Notifier
	recorder  Recorder
	logger    *zap.Logger
	opts      Options
}

func NewOrderService(
	db sqlx.ExtContext,
	tx Transactor,
	orderRepo OrderRepository,
	seqRepo SequenceRepository,
	notifier Notifier,
	recorder Recorder,
	logger *zap.Logger,
	opts Options,
) *OrderService {
	if opts.DeleteMode == "" {
		opts.DeleteMode = domain.DeleteModeSoft
	}
	return &OrderService{
		db:        db,
		tx:        tx,
		orderRepo: orderRepo,
		seqRepo:   seqRepo,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
		opts:      opts,
	}
}

// Create allocates the next order number and inserts a pending order in one
// transaction. The returned order is read back from the store, so CreatedAt is
// the persisted timestamp.
func (s *OrderService) Create(ctx context.Context, quantity int) (*domain.Order, error) {
	if !domain.ValidQuantity(quantity) {
		return nil, invalidQuantity()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		number, err := s.seqRepo.AllocateNext(ctx, q)
		if err != nil {
			return err
		}

		id, err := s.orderRepo.Insert(ctx, q, number, quantity)
		if err != nil {
			return err
		}

		created, err = s.orderRepo.FindByID(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, s.storeError("create", err)
	}

	s.logger.Info("order created",
		zap.Uint64("orderId", created.ID),
		zap.Int64("orderNumber", created.OrderNumber),
		zap.Int("quantity", created.Quantity),
	)
	s.recorder.OrderCreated(created.OrderNumber)
	s.notify(domain.OrderEventCreated, created)

	return created, nil
}

// List returns the board: pending and ready orders, not deleted, oldest first.
func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	orders, err := s.orderRepo.ListActive(ctx, s.db)
	if err != nil {
		return nil, s.storeError("list", err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id uint64) (*domain.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	order, err := s.orderRepo.FindActiveByID(ctx, s.db, id)
	if err != nil {
		return nil, s.storeError("get", err)
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, status domain.OrderStatus) error {
	return s.Update(ctx, id, domain.OrderPatch{Status: &status})
}

func (s *OrderService) UpdateQuantity(ctx context.Context, id uint64, quantity int) error {
	return s.Update(ctx, id, domain.OrderPatch{Quantity: &quantity})
}

// Update applies the present fields of patch in one transaction. Status is
// overwritten as given unless StrictTransitions is set, in which case a
// backward move is rejected with a ConflictError.
func (s *OrderService) Update(ctx context.Context, id uint64, patch domain.OrderPatch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		if patch.Status != nil && s.opts.StrictTransitions {
			current, err := s.orderRepo.FindActiveByIDForUpdate(ctx, q, id)
			if err != nil {
				return err
			}
			if patch.Status.IsBackwardFrom(current.Status) {
				return apperrors.NewConflictError(fmt.Sprintf(
					"order %d cannot move from %s back to %s", id, current.Status, *patch.Status,
				))
			}
		}

		if patch.Status != nil {
			if err := s.orderRepo.UpdateStatus(ctx, q, id, *patch.Status); err != nil {
				return err
			}
		}

		if patch.Quantity != nil {
			if err := s.orderRepo.UpdateQuantity(ctx, q, id, *patch.Quantity); err != nil {
				return err
			}
		}

		var err error
		updated, err = s.orderRepo.FindByID(ctx, q, id)
		return err
	})
	if err != nil {
		return s.storeError("update", err)
	}

	fields := []zap.Field{zap.Uint64("orderId", id), zap.Int64("orderNumber", updated.OrderNumber)}
	if patch.Status != nil {
		fields = append(fields, zap.String("status", string(*patch.Status)))
		s.recorder.StatusChanged(*patch.Status)
	}
	if patch.Quantity != nil {
		fields = append(fields, zap.Int("quantity", *patch.Quantity))
	}
	s.logger.Info("order updated", fields...)
	s.notify(domain.OrderEventUpdated, updated)

	return nil
}

// Remove deletes an active order according to the configured delete mode.
// Soft-deleted orders are not eligible, so removing twice yields NotFoundError.
func (s *OrderService) Remove(ctx context.Context, id uint64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var removed *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		removed, err = s.orderRepo.FindActiveByIDForUpdate(ctx, q, id)
		if err != nil {
			return err
		}

		if s.opts.DeleteMode == domain.DeleteModeHard {
			return s.orderRepo.HardDelete(ctx, q, id)
		}
		return s.orderRepo.SoftDelete(ctx, q, id)
	})
	if err != nil {
		return s.storeError("remove", err)
	}

	s.logger.Info("order removed",
		zap.Uint64("orderId", id),
		zap.Int64("orderNumber", removed.OrderNumber),
		zap.String("mode", string(s.opts.DeleteMode)),
	)
	s.recorder.OrderRemoved(s.opts.DeleteMode)
	s.notify(domain.OrderEventRemoved, removed)

	return nil
}

// BoardStats reads active counts and the last allocated number.
func (s *OrderService) BoardStats(ctx context.Context) (domain.BoardStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	counts, err := s.orderRepo.CountActiveByStatus(ctx, s.db)
	if err != nil {
		return domain.BoardStats{}, s.storeError("stats", err)
	}

	current, err := s.seqRepo.Current(ctx, s.db)
	if err != nil {
		return domain.BoardStats{}, s.storeError("stats", err)
	}

	return domain.BoardStats{Active: counts, CurrentNumber: current}, nil
}

func (s *OrderService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *OrderService) notify(eventType domain.OrderEventType, order *domain.Order) {
	if s.notifier == nil || order == nil {
		return
	}
	s.notifier.Publish(domain.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Quantity:    order.Quantity,
		Status:      order.Status,
	})
}

// storeError passes domain errors through and classifies everything else as
// transient or internal.
func (s *OrderService) storeError(op string, err error) error {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return err
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return err
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		return err
	}

	s.recorder.StoreError(op)

	if mysql.IsTransient(err) {
		s.logger.Warn("transient store failure", zap.String("op", op), zap.Error(err))
		return apperrors.NewTransientError(op+" failed: store unavailable", err)
	}

	s.logger.Error("store failure", zap.String("op", op), zap.Error(err))
	var internalErr *apperrors.InternalError
	if errors.As(err, &internalErr) {
		return err
	}
	return apperrors.NewInternalError(op+" failed", err)
}

func validatePatch(patch domain.OrderPatch) error {
	if patch.IsEmpty() {
		return apperrors.NewValidationError("Invalid parameters", apperrors.ValidationDetail{
			Field:   "body",
			Message: "status or quantity is required",
		})
	}

	if patch.Status != nil {
		if _, ok := domain.ParseOrderStatus(string(*patch.Status)); !ok {
			return apperrors.NewValidationError("Invalid status", apperrors.ValidationDetail{
				Field:   "status",
				Message: "status must be one of pending, ready, completed",
			})
		}
	}

	if patch.Quantity != nil && !domain.ValidQuantity(*patch.Quantity) {
		return invalidQuantity()
	}

	return nil
}

func invalidQuantity() error {
	return apperrors.NewValidationError("Invalid quantity", apperrors.ValidationDetail{
		Field:   "quantity",
		Message: fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantity, domain.MaxQuantity),
	})
}
