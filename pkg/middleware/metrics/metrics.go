// Package metrics records Prometheus metrics for each request.
package metrics

import (
	"time"

	"github.com/nimburion/serverconf/pkg/observability/metrics"
	"github.com/nimburion/serverconf/pkg/server/router"
)

// Metrics creates middleware recording request duration, count, and
// in-flight gauge into registry.
func Metrics(registry *metrics.Registry) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			registry.IncInFlight()
			defer registry.DecInFlight()

			start := time.Now()
			err := next(c)

			registry.ObserveRequest(
				c.Request().Method,
				c.Request().URL.Path,
				c.Response().Status(),
				time.Since(start),
			)
			return err
		}
	}
}
