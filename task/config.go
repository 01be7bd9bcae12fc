package task

import (
	"reflect"
	"strings"
	"time"

	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultMaxJobsToActivate = 32
	DefaultMaxRunningJobs    = 32
)

var validate = newValidate()

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})

	return validate
}

type Config struct {
	// Type is the service task type the handler works on.
	Type string `json:"type" validate:"required"`

	// Timeout is the activation timeout of jobs. Zero uses DefaultTimeout.
	Timeout time.Duration `json:"timeout" validate:"gte=0"`

	// MaxJobsToActivate limits the number of jobs per activation request. Zero uses DefaultMaxJobsToActivate.
	MaxJobsToActivate int `json:"maxJobsToActivate" validate:"gte=0"`

	// MaxRunningJobs limits the number of jobs handled at the same time. Zero uses DefaultMaxRunningJobs.
	MaxRunningJobs int `json:"maxRunningJobs" validate:"gte=0"`

	// VariablesToFetch are the variables requested from the gateway. If empty, they are inferred from the
	// handler's input; handlers without a struct input receive all variables.
	VariablesToFetch []string `json:"variablesToFetch" validate:"dive,required"`

	// SingleValue stores the handler's result as the variable VariableName.
	SingleValue  bool   `json:"singleValue"`
	VariableName string `json:"variableName"`

	// TenantIDs restricts activation to jobs of the given tenants.
	TenantIDs []string `json:"tenantIds" validate:"dive,required"`

	Before []Decorator `json:"-"`
	After  []Decorator `json:"-"`

	// ExceptionHandlers route handler errors. The default handler applies when no rule matches.
	ExceptionHandlers []ExceptionHandlerRule `json:"-"`
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.MaxJobsToActivate == 0 {
		c.MaxJobsToActivate = DefaultMaxJobsToActivate
	}

	if c.MaxRunningJobs == 0 {
		c.MaxRunningJobs = DefaultMaxRunningJobs
	}

	return c
}

func (c Config) validate() error {
	if c.SingleValue && c.VariableName == "" {
		return &zeebeerrors.ErrNoVariableNameGiven{TaskType: c.Type}
	}

	if err := validate.Struct(c); err != nil {
		return &zeebeerrors.ErrSettings{Message: "invalid configuration of task " + c.Type, Cause: err}
	}

	return nil
}
