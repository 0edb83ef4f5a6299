package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var requestDurationBuckets = []float64{
	// fast responses (0 - 500ms)
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	// medium (500ms - 2s)
	750, 1000, 1500, 2000,
	// slow (2s - 30s)
	3000, 5000, 10000, 15000, 30000,
}

// Prometheus exposes HTTP request metrics on a dedicated listener and
// attaches a collection middleware to the gin engine.
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec

	listenAddress string
	urlLabelFn    func(c *gin.Context) string
	log           *zap.SugaredLogger
}

type NewPrometheusOptions struct {
	// ReqCntURLLabelMappingFn maps a request to its url label, typically the
	// route template rather than the raw path.
	ReqCntURLLabelMappingFn func(c *gin.Context) string
	Logger                  *zap.SugaredLogger
}

func NewPrometheus(opts NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		urlLabelFn: opts.ReqCntURLLabelMappingFn,
		log:        opts.Logger,
	}
	if p.urlLabelFn == nil {
		p.urlLabelFn = func(c *gin.Context) string { return c.Request.URL.Path }
	}

	p.reqCnt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed, partitioned by status code, method and url.",
		},
		[]string{"code", "method", "url"},
	)
	p.reqDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   requestDurationBuckets,
		},
		[]string{"code", "method", "url"},
	)
	prometheus.MustRegister(p.reqCnt, p.reqDur)
	return p
}

// SetListenAddress configures the address of the standalone metrics server.
func (p *Prometheus) SetListenAddress(addr string) {
	p.listenAddress = addr
}

// Use attaches the middleware to the engine and starts the metrics listener.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.handlerFunc())
	if p.listenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(p.listenAddress, mux); err != nil && p.log != nil {
				p.log.Errorf("metrics listener error: %v", err)
			}
		}()
	}
}

func (p *Prometheus) handlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.urlLabelFn(c)
		elapsed := float64(time.Since(start).Milliseconds())

		p.reqCnt.WithLabelValues(status, c.Request.Method, url).Inc()
		p.reqDur.WithLabelValues(status, c.Request.Method, url).Observe(elapsed)
	}
}
