package task

import (
	"github.com/cschleiden/go-zeebe/internal/converter"
	"github.com/cschleiden/go-zeebe/job"
)

// Result is the outcome of a handler, either a ScalarResult or a VariablesResult.
type Result interface {
	Variables() job.Variables
}

// ScalarResult is the result of a single value task, stored as one variable.
type ScalarResult struct {
	Name  string
	Value any
}

func (r ScalarResult) Variables() job.Variables {
	return job.Variables{r.Name: r.Value}
}

// VariablesResult is merged into the process variables.
type VariablesResult job.Variables

func (r VariablesResult) Variables() job.Variables {
	if r == nil {
		return job.Variables{}
	}

	return job.Variables(r)
}

func newResult(c converter.Converter, cfg Config, value any) (Result, error) {
	if cfg.SingleValue {
		return ScalarResult{Name: cfg.VariableName, Value: value}, nil
	}

	m, err := converter.ToMap(c, value)
	if err != nil {
		return nil, err
	}

	return VariablesResult(m), nil
}
