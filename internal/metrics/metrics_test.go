package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/poetry/:id", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		resp := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/poetry/"+id, nil)
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusTeapot, resp.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/poetry/:id", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestInflight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestMiddleware_Unmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test")

	r := gin.New()
	r.Use(m.Middleware())

	resp := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/nope", nil)
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestCacheCounters(t *testing.T) {
	m := New("test")

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()

	assert.Equal(t, 2.0, m.CacheHits())
	assert.Equal(t, 1.0, m.CacheMisses())
}

func TestHandler(t *testing.T) {
	m := New("poem")
	m.CacheMiss()

	ts := httptest.NewServer(m.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `poem_cache_total{type="miss"} 1`)
}
