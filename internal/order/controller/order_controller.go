package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"orderboard/internal/domain"
	"orderboard/internal/dto"
	apperrors "orderboard/internal/errors"
	"orderboard/internal/infrastructure/logger"
)

const internalErrorMessage = "Internal server error"

type OrderBoardUseCase interface {
	ListOrders(ctx context.Context) ([]dto.OrderResponse, error)
	CreateOrder(ctx context.Context, quantity int) (*dto.OrderResponse, error)
	GetOrder(ctx context.Context, id uint64) (*dto.OrderResponse, error)
	UpdateOrder(ctx context.Context, id uint64, req dto.UpdateOrderRequest) error
	DeleteOrder(ctx context.Context, id uint64) error
	DisplayBoard(ctx context.Context) (*dto.DisplayBoardResponse, error)
}

type EventSource interface {
	Subscribe() (<-chan domain.OrderEvent, func())
}

type OrderController struct {
	useCase   OrderBoardUseCase
	events    EventSource
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewOrderController(useCase OrderBoardUseCase, events EventSource, heartbeat time.Duration, logger *zap.Logger) *OrderController {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &OrderController{
		useCase:   useCase,
		events:    events,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	orders, err := c.useCase.ListOrders(r.Context())
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	c.writeJSON(w, http.StatusOK, orders)
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid create body", zap.Error(err))
		c.handleError(w, traceID, decodeError(err), log)
		return
	}

	if req.Quantity == nil {
		c.handleError(w, traceID, apperrors.NewValidationError("Invalid quantity", apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity is required",
		}), log)
		return
	}

	order, err := c.useCase.CreateOrder(r.Context(), *req.Quantity)
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	c.writeJSON(w, http.StatusCreated, order)
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	id, err := parseOrderID(r)
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	order, err := c.useCase.GetOrder(r.Context(), id)
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	c.writeJSON(w, http.StatusOK, order)
}

func (c *OrderController) Patch(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	id, err := parseOrderID(r)
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	var req dto.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid patch body", zap.Error(err))
		c.handleError(w, traceID, decodeError(err), log)
		return
	}

	if err := c.useCase.UpdateOrder(r.Context(), id, req); err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (c *OrderController) Delete(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	id, err := parseOrderID(r)
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	if err := c.useCase.DeleteOrder(r.Context(), id); err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (c *OrderController) Display(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	board, err := c.useCase.DisplayBoard(r.Context())
	if err != nil {
		c.handleError(w, traceID, err, log)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	c.writeJSON(w, http.StatusOK, board)
}

// Events streams order changes as server-sent events until the client goes
// away. Idle connections get a comment line every heartbeat interval.
func (c *OrderController) Events(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	log := logger.WithTrace(c.logger, traceID)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("clearing write deadline for event stream", zap.Error(err))
	}

	events, unsubscribe := c.events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		log.Error("event stream cannot flush", zap.Error(err))
		return
	}
	log.Debug("event stream opened")

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("event stream closed by client")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Error("encoding order event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func parseOrderID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("Invalid order id", apperrors.ValidationDetail{
			Field:   "id",
			Message: "id must be a positive integer",
		})
	}
	return id, nil
}

// decodeError turns a JSON decoding failure into a validation error, naming
// the offending field when the body was well-formed but mistyped.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "quantity":
			return apperrors.NewValidationError("Invalid quantity", apperrors.ValidationDetail{
				Field:   "quantity",
				Message: "quantity must be an integer",
			})
		case "status":
			return apperrors.NewValidationError("Invalid status", apperrors.ValidationDetail{
				Field:   "status",
				Message: "status must be a string",
			})
		}
	}
	return apperrors.NewValidationError("Invalid request body", apperrors.ValidationDetail{
		Field:   "body",
		Message: "request body must be valid JSON",
	})
}

func (c *OrderController) handleError(w http.ResponseWriter, traceID string, err error, log *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			TraceID: traceID,
			Code:    "VALIDATION_ERROR",
			Error:   ve.Message,
			Details: ve.Details,
		})
		return
	}

	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		log.Info("order not found", zap.String("reason", nfe.Message))
		c.writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
			TraceID: traceID,
			Code:    "NOT_FOUND",
			Error:   "Order not found",
		})
		return
	}

	if ce, ok := apperrors.IsConflictError(err); ok {
		c.writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			TraceID: traceID,
			Code:    "CONFLICT",
			Error:   ce.Message,
		})
		return
	}

	if _, ok := apperrors.IsTransientError(err); ok {
		log.Warn("store unavailable", zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			TraceID: traceID,
			Code:    "STORE_UNAVAILABLE",
			Error:   internalErrorMessage,
		})
		return
	}

	log.Error("unexpected error", zap.Error(err))
	c.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
		TraceID: traceID,
		Code:    "INTERNAL_ERROR",
		Error:   internalErrorMessage,
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
