package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	engine := gin.New()
	engine.Use(m.Middleware())
	engine.GET("/leads/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/leads/123", nil)
	engine.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/leads/:id", "204"))
	if got != 1 {
		t.Fatalf("request counter = %v, want 1", got)
	}
}

func TestHandlerExposesBusinessCounters(t *testing.T) {
	m := New()
	m.LeadsAssigned.WithLabelValues("campaign").Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `leads_assigned_total{target="campaign"} 3`) {
		t.Fatalf("metrics output missing assignment counter:\n%s", rec.Body.String())
	}
}

func TestInstancesDoNotShareRegistries(t *testing.T) {
	a, b := New(), New()
	a.LeadsDistributed.Inc()
	if testutil.ToFloat64(b.LeadsDistributed) != 0 {
		t.Fatal("metrics instances must be independent")
	}
}
