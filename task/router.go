package task

import (
	"slices"
	"sync"

	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

type RouterOptions struct {
	// Before decorators run before the decorators of every task of the router.
	Before []Decorator

	// After decorators run after the decorators of every task of the router.
	After []Decorator
}

// Router groups tasks with shared decorators.
type Router struct {
	sync.Mutex

	before []Decorator
	after  []Decorator

	tasks []*Task
}

func NewRouter(options RouterOptions) *Router {
	return &Router{
		before: slices.Clone(options.Before),
		after:  slices.Clone(options.After),
	}
}

// Task compiles handler and registers it for cfg.Type. Handlers have the shape
//
//	func([ctx context.Context,] [j *job.Job,] [input V]) ([R,] error)
//
// V is a struct whose JSON fields name the variables to fetch, or a map receiving all variables. R is
// merged into the process variables; it must encode as a JSON object unless cfg.SingleValue is set.
func (r *Router) Task(cfg Config, handler any) error {
	t, err := New(cfg, handler)
	if err != nil {
		return err
	}

	return r.Add(t)
}

// Add registers an already compiled task.
func (r *Router) Add(t *Task) error {
	r.Lock()
	defer r.Unlock()

	if r.index(t.Type()) >= 0 {
		return &zeebeerrors.ErrDuplicateTaskType{TaskType: t.Type()}
	}

	r.tasks = append(r.tasks, t)

	return nil
}

// Get returns the task registered for taskType, without the router's decorators.
func (r *Router) Get(taskType string) (*Task, error) {
	r.Lock()
	defer r.Unlock()

	i := r.index(taskType)
	if i < 0 {
		return nil, &zeebeerrors.ErrTaskNotFound{TaskType: taskType}
	}

	return r.tasks[i], nil
}

func (r *Router) Remove(taskType string) error {
	r.Lock()
	defer r.Unlock()

	i := r.index(taskType)
	if i < 0 {
		return &zeebeerrors.ErrTaskNotFound{TaskType: taskType}
	}

	r.tasks = slices.Delete(r.tasks, i, i+1)

	return nil
}

// Tasks returns the registered tasks in registration order, composed with the router's decorators.
func (r *Router) Tasks() []*Task {
	r.Lock()
	defer r.Unlock()

	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t.Compose(r.before, r.after))
	}

	return tasks
}

func (r *Router) index(taskType string) int {
	return slices.IndexFunc(r.tasks, func(t *Task) bool {
		return t.Type() == taskType
	})
}
