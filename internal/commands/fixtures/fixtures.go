// Package fixtures holds recorders shared by command handler tests.
package fixtures

import (
	"fmt"

	command "github.com/goliatone/go-command"
)

// RecordingRegistry records handlers passed to RegisterCommand. When Err is
// set, registration fails with it and nothing is recorded.
type RecordingRegistry struct {
	Handlers []any
	Err      error
}

func NewRecordingRegistry() *RecordingRegistry {
	return &RecordingRegistry{}
}

func (r *RecordingRegistry) RegisterCommand(handler any) error {
	if r.Err != nil {
		return r.Err
	}
	r.Handlers = append(r.Handlers, handler)
	return nil
}

// CronRegistration is one scheduled rebuild.
type CronRegistration struct {
	Config  command.HandlerConfig
	Handler any
}

// CronRecorder stands in for a go-command cron registrar.
type CronRecorder struct {
	Registrations []CronRegistration
}

func NewCronRecorder() *CronRecorder {
	return &CronRecorder{}
}

// Registrar returns the registrar func handed to RegisterBuildCron.
func (c *CronRecorder) Registrar() func(command.HandlerConfig, any) error {
	return func(cfg command.HandlerConfig, handler any) error {
		c.Registrations = append(c.Registrations, CronRegistration{Config: cfg, Handler: handler})
		return nil
	}
}

// Trigger runs the i-th recorded job as the scheduler would.
func (c *CronRecorder) Trigger(i int) error {
	if i < 0 || i >= len(c.Registrations) {
		return fmt.Errorf("fixtures: no cron registration %d", i)
	}
	run, ok := c.Registrations[i].Handler.(func() error)
	if !ok {
		return fmt.Errorf("fixtures: cron handler %d is %T, want func() error", i, c.Registrations[i].Handler)
	}
	return run()
}
