// Package metrics defines the client the worker runtime reports job and gateway metrics through.
//
// Metric names use dotted lowercase keys such as "zeebe.job.completed". Backends translate them to
// their own naming scheme, see the prometheus subpackage.
package metrics

import "time"

// Tags are the dimensions of a single measurement. A backend may require every measurement of one
// metric to carry the same tag names.
type Tags map[string]string

// Merge returns a new Tags holding t overlaid with other.
func (t Tags) Merge(other Tags) Tags {
	merged := make(Tags, len(t)+len(other))
	for k, v := range t {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}

	return merged
}

type Client interface {
	// Counter adds value to a monotonically increasing count, e.g. activated or completed jobs.
	Counter(name string, tags Tags, value int64)

	Distribution(name string, tags Tags, value float64)

	// Gauge sets the current value, e.g. the number of jobs a worker is running.
	Gauge(name string, tags Tags, value int64)

	Timing(name string, tags Tags, duration time.Duration)

	// WithTags returns a client adding tags to every measurement.
	WithTags(tags Tags) Client
}
