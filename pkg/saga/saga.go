package saga

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Outcomes reported to an Observer once a run finishes.
const (
	OutcomeSucceeded          = "succeeded"
	OutcomeCompensated        = "compensated"
	OutcomeCompensationFailed = "compensation_failed"
)

// Action performs or undoes one side effect.
type Action func(ctx context.Context) error

// Step pairs an action with the compensation that reverses it. Compensate may be nil.
type Step struct {
	Name       string
	Action     Action
	Compensate Action
}

// Observer receives the outcome of each run.
type Observer func(saga, outcome string)

// StepError reports the step that failed and any compensation errors encountered while unwinding.
type StepError struct {
	Saga         string
	Step         string
	Err          error
	Compensation error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("%s: step %s failed: %v (compensation: %v)", e.Saga, e.Step, e.Err, e.Compensation)
	}
	return fmt.Sprintf("%s: step %s failed: %v", e.Saga, e.Step, e.Err)
}

// Unwrap exposes the failing step error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga executes steps in order and unwinds completed steps in reverse when one fails.
type Saga struct {
	name     string
	steps    []Step
	logger   *zap.Logger
	observer Observer
}

// New builds an empty saga.
func New(name string, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{name: name, logger: logger}
}

// WithObserver registers a callback invoked with the run outcome.
func (s *Saga) WithObserver(observer Observer) *Saga {
	s.observer = observer
	return s
}

// AddStep appends a step.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Len returns the number of registered steps.
func (s *Saga) Len() int {
	return len(s.steps)
}

// Run executes the saga. A failing step triggers compensation of every completed step, newest first,
// and the failing step's error is returned wrapped in a *StepError. Compensations run on a context
// detached from cancellation so an aborted request still unwinds.
func (s *Saga) Run(ctx context.Context) error {
	completed := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if step.Action == nil {
			completed = append(completed, step)
			continue
		}
		if err := step.Action(ctx); err != nil {
			s.logger.Warn("saga step failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			compErr := s.compensate(context.WithoutCancel(ctx), completed)
			outcome := OutcomeCompensated
			if compErr != nil {
				outcome = OutcomeCompensationFailed
			}
			s.observe(outcome)
			return &StepError{Saga: s.name, Step: step.Name, Err: err, Compensation: compErr}
		}
		s.logger.Debug("saga step completed", zap.String("saga", s.name), zap.String("step", step.Name))
		completed = append(completed, step)
	}
	s.observe(OutcomeSucceeded)
	return nil
}

func (s *Saga) compensate(ctx context.Context, completed []Step) error {
	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		s.logger.Info("saga step compensated", zap.String("saga", s.name), zap.String("step", step.Name))
	}
	return errors.Join(errs...)
}

func (s *Saga) observe(outcome string) {
	if s.observer != nil {
		s.observer(s.name, outcome)
	}
}
