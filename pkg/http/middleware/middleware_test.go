package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	applogger "BandView/pkg/logger"
)

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := newHTTPMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(metricsWith(m, applogger.NewNop(), 0))
	e.GET("/api/items/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/items/:id", http.MethodGet, "200")))
}

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(applogger.NewNop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowMethods: []string{http.MethodGet}}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://chart.local")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://chart.local", rec.Header().Get("Access-Control-Allow-Origin"))
}
