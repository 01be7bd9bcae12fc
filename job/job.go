package job

import (
	"fmt"
	"maps"
	"sync"
	"time"
)

type Status int

const (
	StatusRunning Status = iota
	StatusRunningAfterDecorators
	StatusCompleted
	StatusFailed
	StatusErrorThrown
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusRunningAfterDecorators:
		return "RunningAfterDecorators"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusErrorThrown:
		return "ErrorThrown"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal returns true once the job has been acknowledged.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusErrorThrown
}

// Job is one activated job. Jobs are immutable by convention: decorators that want to change a job
// should return a modified Clone. The status is owned by the job's Controller.
type Job struct {
	Key                      int64
	Type                     string
	ProcessInstanceKey       int64
	BpmnProcessID            string
	ProcessDefinitionVersion int32
	ProcessDefinitionKey     int64
	ElementID                string
	ElementInstanceKey       int64
	CustomHeaders            map[string]string
	Worker                   string
	Retries                  int32
	Deadline                 time.Time
	Variables                Variables
	TenantID                 string

	// TaskResult holds the variables reported to the gateway when the job completes.
	TaskResult Variables

	state *state
}

type state struct {
	mu     sync.Mutex
	status Status
}

// New returns an activated job in status Running.
func New(j Job) *Job {
	j.state = &state{status: StatusRunning}
	if j.Variables == nil {
		j.Variables = Variables{}
	}

	return &j
}

func (j *Job) Status() Status {
	if j.state == nil {
		return StatusRunning
	}

	j.state.mu.Lock()
	defer j.state.mu.Unlock()

	return j.state.status
}

// Clone returns a copy of the job with its own variable maps. The copy shares the status with j.
func (j *Job) Clone() *Job {
	c := *j
	c.CustomHeaders = maps.Clone(j.CustomHeaders)
	c.Variables = maps.Clone(j.Variables)
	c.TaskResult = maps.Clone(j.TaskResult)

	return &c
}

// Expired returns true when the activation deadline has passed at now.
func (j *Job) Expired(now time.Time) bool {
	return !j.Deadline.IsZero() && !now.Before(j.Deadline)
}

func (j *Job) String() string {
	return fmt.Sprintf("job %d (%s, process instance %d)", j.Key, j.Type, j.ProcessInstanceKey)
}
