package task

type Config struct {
	Type         string
	SingleValue  bool
	VariableName string
}

type Task struct{}

type Router struct{}

func New(cfg Config, handler any) (*Task, error) {
	return &Task{}, nil
}

func (r *Router) Task(cfg Config, handler any) error {
	return nil
}
