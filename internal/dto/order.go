package dto

import (
	"time"

	apperrors "orderboard/internal/errors"
)

type CreateOrderRequest struct {
	Quantity *int `json:"quantity"`
}

// UpdateOrderRequest carries a partial update; absent fields are left alone.
type UpdateOrderRequest struct {
	Status   *string `json:"status"`
	Quantity *int    `json:"quantity"`
}

type OrderResponse struct {
	ID          uint64    `json:"id"`
	OrderNumber int64     `json:"orderNumber"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type DisplayEntry struct {
	OrderNumber int64  `json:"orderNumber"`
	Label       string `json:"label"`
	Quantity    int    `json:"quantity"`
}

type DisplayBoardResponse struct {
	Ready   []DisplayEntry `json:"ready"`
	Cooking []DisplayEntry `json:"cooking"`
}

type ErrorResponse struct {
	TraceID string                       `json:"traceId,omitempty"`
	Code    string                       `json:"code,omitempty"`
	Error   string                       `json:"error"`
	Details []apperrors.ValidationDetail `json:"details,omitempty"`
}

type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
