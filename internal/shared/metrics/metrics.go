package metrics

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomeConflict    = "conflict"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)

var (
	documentOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_operations_total",
		Help: "Document store operations by collection, operation and outcome.",
	}, []string{"collection", "op", "outcome"})

	userSync = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "user_sync_total",
		Help: "User sync reconciliations by outcome.",
	}, []string{"outcome"})

	authRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_rejections_total",
		Help: "Requests rejected by the access gate, by reason.",
	}, []string{"reason"})

	backpressureRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backpressure_rejections_total",
		Help: "Requests shed because every storage slot was busy.",
	})

	httpOnce sync.Once
	httpProm *ginprometheus.Prometheus
)

// ObserveDocumentOp counts one document store operation.
func ObserveDocumentOp(collection, op, outcome string) {
	documentOps.WithLabelValues(collection, op, outcome).Inc()
}

// IncUserSync counts one sync-user reconciliation.
func IncUserSync(outcome string) {
	userSync.WithLabelValues(outcome).Inc()
}

// IncAuthRejection counts one rejected request.
func IncAuthRejection(reason string) {
	authRejections.WithLabelValues(reason).Inc()
}

// IncBackpressureRejection counts one shed request.
func IncBackpressureRejection() {
	backpressureRejections.Inc()
}

// Instrument attaches HTTP request metrics and the /metrics endpoint to engine.
// Collectors are registered once per process; later engines share them.
func Instrument(engine *gin.Engine) {
	httpOnce.Do(func() {
		httpProm = ginprometheus.NewPrometheus("http")
		httpProm.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if route := c.FullPath(); route != "" {
				return route
			}
			return "unmatched"
		}
	})
	httpProm.Use(engine)
}
