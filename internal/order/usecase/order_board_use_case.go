package usecase

import (
	"context"

	"go.uber.org/zap"

	"orderboard/internal/domain"
	"orderboard/internal/dto"
)

type OrderService interface {
	Create(ctx context.Context, quantity int) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id uint64) (*domain.Order, error)
	Update(ctx context.Context, id uint64, patch domain.OrderPatch) error
	Remove(ctx context.Context, id uint64) error
}

// OrderBoardUseCase maps HTTP-level requests onto the order service and shapes
// its results into response DTOs.
type OrderBoardUseCase struct {
	svc    OrderService
	logger *zap.Logger
}

func NewOrderBoardUseCase(svc OrderService, logger *zap.Logger) *OrderBoardUseCase {
	return &OrderBoardUseCase{
		svc:    svc,
		logger: logger,
	}
}

func (uc *OrderBoardUseCase) ListOrders(ctx context.Context) ([]dto.OrderResponse, error) {
	orders, err := uc.svc.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	return resp, nil
}

func (uc *OrderBoardUseCase) CreateOrder(ctx context.Context, quantity int) (*dto.OrderResponse, error) {
	order, err := uc.svc.Create(ctx, quantity)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (uc *OrderBoardUseCase) GetOrder(ctx context.Context, id uint64) (*dto.OrderResponse, error) {
	order, err := uc.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

// UpdateOrder passes the status string through unparsed; the service rejects
// anything outside the known set.
func (uc *OrderBoardUseCase) UpdateOrder(ctx context.Context, id uint64, req dto.UpdateOrderRequest) error {
	var patch domain.OrderPatch
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		patch.Status = &status
	}
	patch.Quantity = req.Quantity

	return uc.svc.Update(ctx, id, patch)
}

func (uc *OrderBoardUseCase) DeleteOrder(ctx context.Context, id uint64) error {
	return uc.svc.Remove(ctx, id)
}

// DisplayBoard splits the active orders into the two columns of the public
// screen. Pending orders are shown as cooking. Both columns keep the
// oldest-first order of the list.
func (uc *OrderBoardUseCase) DisplayBoard(ctx context.Context) (*dto.DisplayBoardResponse, error) {
	orders, err := uc.svc.List(ctx)
	if err != nil {
		return nil, err
	}

	board := &dto.DisplayBoardResponse{
		Ready:   []dto.DisplayEntry{},
		Cooking: []dto.DisplayEntry{},
	}
	for _, o := range orders {
		entry := dto.DisplayEntry{
			OrderNumber: o.OrderNumber,
			Label:       o.DisplayLabel(),
			Quantity:    o.Quantity,
		}
		switch o.Status {
		case domain.OrderStatusReady:
			board.Ready = append(board.Ready, entry)
		case domain.OrderStatusPending:
			board.Cooking = append(board.Cooking, entry)
		default:
			uc.logger.Warn("unexpected status on board", zap.Uint64("orderId", o.ID), zap.String("status", string(o.Status)))
		}
	}
	return board, nil
}

func toOrderResponse(o *domain.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Quantity:    o.Quantity,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}
