package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// sizeWriter counts bytes written to the response body
type sizeWriter struct {
	gin.ResponseWriter
	size int
}

func (w *sizeWriter) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.size += n
	return n, err
}

func (w *sizeWriter) WriteString(s string) (int, error) {
	n, err := w.ResponseWriter.WriteString(s)
	w.size += n
	return n, err
}

// scrapePaths are not recorded so probes do not dominate the request series
var scrapePaths = map[string]bool{
	"/metrics": true,
	"/health":  true,
}

// PrometheusMiddleware records request count, latency and response size per route
func PrometheusMiddleware() gin.HandlerFunc {
	m := Get()

	return func(c *gin.Context) {
		if scrapePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		sw := &sizeWriter{ResponseWriter: c.Writer}
		c.Writer = sw

		c.Next()

		m.RecordHTTPRequest(
			routeLabel(c.FullPath()),
			c.Request.Method,
			c.Writer.Status(),
			time.Since(start),
			sw.size,
		)
	}
}

// PrometheusHandler serves the default registry
func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// routeLabel uses the matched route template (":id" placeholders) so label
// cardinality stays bounded. Unmatched paths collapse to "unknown".
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
