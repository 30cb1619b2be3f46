// Package metrics собирает и публикует метрики Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector собирает метрики HTTP-запросов, оформления заказов и доставки уведомлений.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	checkouts     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// NewCollector создаёт Collector и регистрирует метрики в указанном реестре.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comfyshop_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comfyshop_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comfyshop_checkouts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comfyshop_notifications_total",
			Help: "Notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(c.requests, c.latency, c.checkouts, c.notifications)

	return c
}

// RecordCheckout учитывает попытку оформления заказа.
func (c *Collector) RecordCheckout(outcome string) {
	c.checkouts.WithLabelValues(outcome).Inc()
}

// RecordNotification учитывает доставку уведомления.
func (c *Collector) RecordNotification(channel, outcome string) {
	c.notifications.WithLabelValues(channel, outcome).Inc()
}

// Middleware учитывает запросы по шаблону маршрута chi, а не по фактическому пути.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
