package hdfs

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// client side, one sample per HTTP hop
	CounterVecClientRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhdfs_client_requests_total",
		Help: "WebHDFS requests sent, by HTTP method and status code",
	}, []string{"method", "code"})
	SummaryVecClientDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "webhdfs_client_request_duration_ms",
		Help: "WebHDFS request latency in ms",
	}, []string{"method"})
	CounterClientRedirects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhdfs_client_redirects_total",
		Help: "307 redirects followed to a DataNode",
	})

	// emulator side
	GaugeVecApiDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "apiDuration",
		Help: "api latency in ms",
	}, []string{"method"})
	GaugeVecApiMethod = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apiCount",
		Help: "requests served, by HTTP method",
	}, []string{"method"})
	GaugeVecApiError = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apiErrorCount",
		Help: "requests answered with a RemoteException, by exception",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(
		CounterVecClientRequests, SummaryVecClientDuration, CounterClientRedirects,
		GaugeVecApiDuration, GaugeVecApiMethod, GaugeVecApiError,
	)
}

func observeHop(method string, code int, start time.Time) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	CounterVecClientRequests.WithLabelValues(method, label).Inc()
	SummaryVecClientDuration.WithLabelValues(method).Observe(float64(time.Since(start)) / float64(time.Millisecond))
}

func MwPrometheusHttp(c *gin.Context) {
	start := time.Now()
	method := c.Request.Method
	GaugeVecApiMethod.WithLabelValues(method).Inc()

	c.Next()
	GaugeVecApiDuration.WithLabelValues(method).Observe(float64(time.Since(start)) / float64(time.Millisecond))
}
