package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_LabelsByRouteTemplate(t *testing.T) {
	c := NewCollector("test")
	r := mux.NewRouter()
	r.HandleFunc("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] == "999" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Use(c.InstrumentHandler)

	for _, path := range []string{"/products/1", "/products/2", "/products/999"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/products/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/products/{id}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.httpInFlight))
}

func TestRecordOrderEvent(t *testing.T) {
	c := NewCollector("test")

	c.RecordOrderEvent("OrderPlaced", 14767)
	c.RecordOrderEvent("OrderPlaced", 5000)
	c.RecordOrderEvent("OrderCancelled", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.orderEvents.WithLabelValues("OrderPlaced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.orderEvents.WithLabelValues("OrderCancelled")))
	assert.InDelta(t, 197.67, testutil.ToFloat64(c.orderValue), 0.001)
}

func TestRecordEmail(t *testing.T) {
	c := NewCollector("test")

	c.RecordEmail("confirmation", nil)
	c.RecordEmail("confirmation", errors.New("smtp down"))
	c.RecordEmail("cancellation", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.emails.WithLabelValues("confirmation", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emails.WithLabelValues("confirmation", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emails.WithLabelValues("cancellation", "success")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordOrderEvent("OrderPlaced", 100)
		c.RecordEmail("confirmation", nil)
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := c.InstrumentHandler(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	c := NewCollector("test")
	c.RecordOrderEvent("OrderPlaced", 2599)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_orders_events_total{event="OrderPlaced"} 1`), body)
	assert.Contains(t, body, "test_orders_placed_value_rand_total 25.99")
}
