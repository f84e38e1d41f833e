package includes

import (
	"time"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// NoOpMetrics returns a metrics recorder that drops every observation.
func NoOpMetrics() interfaces.IncludeMetrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) ObserveResolveDuration(string, time.Duration) {}

func (noopMetrics) IncrementResolveError(string) {}
