package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"orderboard/internal/domain"
)

// OrderMetrics holds the board's Prometheus collectors.
type OrderMetrics struct {
	ordersCreated  prometheus.Counter
	statusChanges  *prometheus.CounterVec
	ordersRemoved  *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec
	activeOrders   *prometheus.GaugeVec
	sequenceNumber prometheus.Gauge

	mu         sync.Mutex
	lastNumber int64
}

// NewOrderMetrics registers the collectors on registerer, or on the default
// registerer when it is nil.
func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &OrderMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderboard_orders_created_total",
			Help: "Total number of orders created",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderboard_status_changes_total",
			Help: "Total number of status writes by target status",
		}, []string{"status"}),
		ordersRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderboard_orders_removed_total",
			Help: "Total number of orders removed by delete mode",
		}, []string{"mode"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderboard_store_errors_total",
			Help: "Total number of unexpected store failures by operation",
		}, []string{"op"}),
		activeOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderboard_active_orders",
			Help: "Orders currently on the board by status",
		}, []string{"status"}),
		sequenceNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderboard_sequence_current",
			Help: "Last allocated order number",
		}),
	}

	registerer.MustRegister(
		m.ordersCreated,
		m.statusChanges,
		m.ordersRemoved,
		m.storeErrors,
		m.activeOrders,
		m.sequenceNumber,
	)

	return m
}

// OrderCreated only ever raises the sequence gauge; commits can finish out of
// allocation order.
func (m *OrderMetrics) OrderCreated(orderNumber int64) {
	m.ordersCreated.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if orderNumber > m.lastNumber {
		m.lastNumber = orderNumber
		m.sequenceNumber.Set(float64(orderNumber))
	}
}

func (m *OrderMetrics) StatusChanged(status domain.OrderStatus) {
	m.statusChanges.WithLabelValues(string(status)).Inc()
}

func (m *OrderMetrics) OrderRemoved(mode domain.DeleteMode) {
	m.ordersRemoved.WithLabelValues(string(mode)).Inc()
}

func (m *OrderMetrics) StoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// SetBoardStats replaces the board gauges with a fresh snapshot.
func (m *OrderMetrics) SetBoardStats(stats domain.BoardStats) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusReady} {
		m.activeOrders.WithLabelValues(string(status)).Set(float64(stats.Active[status]))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastNumber = stats.CurrentNumber
	m.sequenceNumber.Set(float64(stats.CurrentNumber))
}
