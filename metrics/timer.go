package metrics

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer measures one operation, a gateway request or a handler invocation.
type Timer struct {
	client Client
	clock  clock.Clock
	start  time.Time
	name   string
	tags   Tags
}

// StartTimer starts measuring name. A nil clk uses the wall clock.
func StartTimer(client Client, clk clock.Clock, name string, tags Tags) *Timer {
	if clk == nil {
		clk = clock.New()
	}

	return &Timer{
		client: client,
		clock:  clk,
		start:  clk.Now(),
		name:   name,
		tags:   tags,
	}
}

// Stop reports the elapsed time as a timing with the start tags plus outcome, which usually
// describes how the operation ended. It returns the elapsed time.
func (t *Timer) Stop(outcome Tags) time.Duration {
	elapsed := t.clock.Since(t.start)

	tags := t.tags
	if len(outcome) > 0 {
		tags = t.tags.Merge(outcome)
	}

	t.client.Timing(t.name, tags, elapsed)

	return elapsed
}
