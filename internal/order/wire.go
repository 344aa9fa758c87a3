package order

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"orderboard/internal/config"
	"orderboard/internal/domain"
	"orderboard/internal/infrastructure/mysql"
	"orderboard/internal/metrics"
	"orderboard/internal/order/controller"
	"orderboard/internal/order/events"
	orderrepo "orderboard/internal/order/repository"
	"orderboard/internal/order/service"
	"orderboard/internal/order/usecase"
)

type Module struct {
	Controller *controller.OrderController
	Service    *service.OrderService
	Metrics    *metrics.OrderMetrics
	Broker     *events.Broker
}

func NewModule(db *sqlx.DB, cfg *config.Config, registerer prometheus.Registerer, logger *zap.Logger) (*Module, error) {
	deleteMode, err := domain.ParseDeleteMode(cfg.Order.DeleteMode)
	if err != nil {
		return nil, fmt.Errorf("order.deleteMode: %w", err)
	}

	orderRepo := orderrepo.NewMySQLOrderRepository()
	seqRepo := orderrepo.NewMySQLSequenceRepository()
	broker := events.NewBroker(cfg.Server.EventsBufferSize, logger)
	orderMetrics := metrics.NewOrderMetrics(registerer)

	svc := service.NewOrderService(
		db,
		mysql.NewTxRunner(db),
		orderRepo,
		seqRepo,
		broker,
		orderMetrics,
		logger,
		service.Options{
			DeleteMode:        deleteMode,
			StrictTransitions: cfg.Order.StrictTransitions,
			QueryTimeout:      cfg.Database.QueryTimeout,
		},
	)

	uc := usecase.NewOrderBoardUseCase(svc, logger)
	ctrl := controller.NewOrderController(uc, broker, cfg.Server.EventsHeartbeat, logger)

	return &Module{
		Controller: ctrl,
		Service:    svc,
		Metrics:    orderMetrics,
		Broker:     broker,
	}, nil
}
