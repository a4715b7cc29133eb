package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

// Recorder exports the checkout counters to Prometheus.
type Recorder struct {
	initiated      *prometheus.CounterVec
	queried        *prometheus.CounterVec
	ordersCreated  prometheus.Counter
	materializeErr prometheus.Counter
}

// NewRecorder registers the counters on reg (prometheus.DefaultRegisterer in
// production).
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		initiated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "foodhub_payments_initiated_total",
			Help: "STK push requests by outcome",
		}, []string{"outcome"}),
		queried: f.NewCounterVec(prometheus.CounterOpts{
			Name: "foodhub_payment_queries_total",
			Help: "STK status queries by classified state",
		}, []string{"state"}),
		ordersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "foodhub_orders_created_total",
			Help: "Orders created from completed payments",
		}),
		materializeErr: f.NewCounter(prometheus.CounterOpts{
			Name: "foodhub_order_materialization_failures_total",
			Help: "Completed payments that could not be turned into an order",
		}),
	}
}

func (r *Recorder) PaymentInitiated(outcome string)      { r.initiated.WithLabelValues(outcome).Inc() }
func (r *Recorder) PaymentQueried(s domain.PaymentState) { r.queried.WithLabelValues(string(s)).Inc() }
func (r *Recorder) OrderCreated()                        { r.ordersCreated.Inc() }
func (r *Recorder) MaterializationFailed()               { r.materializeErr.Inc() }

var _ usecase.Recorder = (*Recorder)(nil)
