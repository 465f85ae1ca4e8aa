// Package metrics Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 应用级注册表
var Registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shrimpy",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shrimpy",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// MenuWrites 菜品写操作，op: create/update/delete，result: ok/error
	MenuWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shrimpy",
		Name:      "menu_writes_total",
		Help:      "Menu item writes by operation and result.",
	}, []string{"op", "result"})

	// MenuFetches 菜单查询拉取次数，result: success/failure
	MenuFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shrimpy",
		Name:      "menu_fetches_total",
		Help:      "Menu list fetches from the store.",
	}, []string{"result"})

	// ImageUploads 图片上传次数
	ImageUploads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shrimpy",
		Name:      "image_uploads_total",
		Help:      "Dish photos uploaded to the bucket.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		MenuWrites,
		MenuFetches,
		ImageUploads,
	)
}

// Middleware 记录请求数与耗时，按路由模板聚合
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 处理器
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Result 将错误转换为结果标签
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
