package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	m.ObserveQuote("web-de", "rule")
	m.ObserveOrder("pending")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `storefront_http_requests_total{method="GET",route="/ping/:id",status="200"} 1`)
	assert.Contains(t, body, `storefront_tax_quotes_total{channel="web-de",source="rule"} 1`)
	assert.Contains(t, body, `storefront_orders_total{status="pending"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuote("x", "rule")
		m.ObserveOrder("paid")
	})
}
