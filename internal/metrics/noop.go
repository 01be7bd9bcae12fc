// Package metrics provides the metrics client used by the adapter and workers when none is configured.
package metrics

import (
	"time"

	"github.com/cschleiden/go-zeebe/metrics"
)

// Discard drops every measurement.
var Discard metrics.Client = discard{}

type discard struct{}

func (discard) Counter(string, metrics.Tags, int64)        {}
func (discard) Distribution(string, metrics.Tags, float64) {}
func (discard) Gauge(string, metrics.Tags, int64)          {}
func (discard) Timing(string, metrics.Tags, time.Duration) {}
func (d discard) WithTags(metrics.Tags) metrics.Client     { return d }
