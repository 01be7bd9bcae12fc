// Package prometheus implements metrics.Client on top of a Prometheus registry.
package prometheus

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cschleiden/go-zeebe/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	sync.Mutex

	registerer prometheus.Registerer

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

type Client struct {
	c    *collectors
	tags metrics.Tags
}

var _ metrics.Client = (*Client)(nil)

// New returns a metrics client registering its collectors with reg. If reg is nil,
// prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Client {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Client{
		c: &collectors{
			registerer: reg,
			counters:   make(map[string]*prometheus.CounterVec),
			histograms: make(map[string]*prometheus.HistogramVec),
			gauges:     make(map[string]*prometheus.GaugeVec),
		},
		tags: metrics.Tags{},
	}
}

func (c *Client) Counter(name string, tags metrics.Tags, value int64) {
	labels := c.labels(tags)
	vec := getOrRegister(c.c, c.c.counters, name, labels, func(opts prometheus.Opts, names []string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts(opts), names)
	})
	if vec != nil {
		vec.With(labels).Add(float64(value))
	}
}

func (c *Client) Distribution(name string, tags metrics.Tags, value float64) {
	labels := c.labels(tags)
	vec := getOrRegister(c.c, c.c.histograms, name, labels, func(opts prometheus.Opts, names []string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      opts.Name,
			Help:      opts.Help,
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, names)
	})
	if vec != nil {
		vec.With(labels).Observe(value)
	}
}

func (c *Client) Gauge(name string, tags metrics.Tags, value int64) {
	labels := c.labels(tags)
	vec := getOrRegister(c.c, c.c.gauges, name, labels, func(opts prometheus.Opts, names []string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts(opts), names)
	})
	if vec != nil {
		vec.With(labels).Set(float64(value))
	}
}

// Timing records the duration in milliseconds.
func (c *Client) Timing(name string, tags metrics.Tags, duration time.Duration) {
	c.Distribution(name, tags, float64(duration/time.Millisecond))
}

func (c *Client) WithTags(tags metrics.Tags) metrics.Client {
	return &Client{
		c:    c.c,
		tags: metrics.Tags(c.labels(tags)),
	}
}

func (c *Client) labels(tags metrics.Tags) prometheus.Labels {
	labels := make(prometheus.Labels, len(c.tags)+len(tags))
	for k, v := range c.tags {
		labels[sanitize(k)] = v
	}
	for k, v := range tags {
		labels[sanitize(k)] = v
	}

	return labels
}

func getOrRegister[V prometheus.Collector](
	c *collectors, vecs map[string]V, name string, labels prometheus.Labels, create func(prometheus.Opts, []string) V,
) V {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	slices.Sort(names)

	key := name + "{" + strings.Join(names, ",") + "}"

	c.Lock()
	defer c.Unlock()

	if vec, ok := vecs[key]; ok {
		return vec
	}

	vec := create(prometheus.Opts{
		Name: sanitize(name),
		Help: name,
	}, names)

	if err := c.registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			// Same metric name with a different label set, not representable in Prometheus
			var zero V
			return zero
		}

		existing, ok := are.ExistingCollector.(V)
		if !ok {
			var zero V
			return zero
		}

		vec = existing
	}

	vecs[key] = vec

	return vec
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
