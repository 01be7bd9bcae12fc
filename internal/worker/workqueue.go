package worker

import (
	"sync"

	"github.com/cschleiden/go-zeebe/job"
)

// taskState tracks the jobs of one task between activation and acknowledgment.
type taskState struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func newTaskState() *taskState {
	return &taskState{active: make(map[int64]struct{})}
}

// add returns false if the job is already active.
func (s *taskState) add(j *job.Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[j.Key]; ok {
		return false
	}

	s.active[j.Key] = struct{}{}

	return true
}

func (s *taskState) remove(j *job.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, j.Key)
}

func (s *taskState) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// workQueue hands activated jobs from the poller to the executor.
type workQueue struct {
	jobs chan *job.Job
}

func newWorkQueue(capacity int) *workQueue {
	return &workQueue{
		jobs: make(chan *job.Job, capacity),
	}
}

// add never drops a job: activation keeps the running count within capacity and the queue is only
// closed after the poller exited.
func (q *workQueue) add(j *job.Job) {
	q.jobs <- j
}

// close ends the executor once the remaining jobs are dispatched.
func (q *workQueue) close() {
	close(q.jobs)
}
