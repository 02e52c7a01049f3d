// Package control runs tasks at a fixed rate. Every tick the loop reads one robot snapshot,
// updates every task with it in order, evaluates completion criteria, hands the tasks to the
// actuator and records telemetry.
package control

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/gui"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/tasks"
	"github.com/wbcontrol/wbc/utils"
)

// StateSource provides the robot snapshot of each tick.
type StateSource interface {
	Robots(ctx context.Context) (contact.Robots, error)
}

// Actuator consumes the tasks once they are updated. A StateSource that also implements Actuator
// is called after every tick, e.g. a simulator integrating the surface velocities.
type Actuator interface {
	Apply(ctx context.Context, dt float64, tasks []tasks.MetaTask) error
}

// Options are the optional collaborators of a loop.
type Options struct {
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Recorder, if set, receives the telemetry of every task and one record per tick.
	Recorder *ftdc.Logger
	// GUI, if set, receives the GUI elements of every task.
	GUI *gui.StateBuilder
}

// TaskStatus is the completion state of a task in the loop.
type TaskStatus struct {
	Done bool
	// Criteria lists the satisfied criteria when Done.
	Criteria string
	// Tick is the tick at which the task completed.
	Tick int
}

type loopTask struct {
	task       tasks.MetaTask
	completion tasks.CompletionCriteria
	status     TaskStatus
}

// Loop holds the loop state.
type Loop struct {
	mu       sync.Mutex
	cfg      Config
	dt       time.Duration
	source   StateSource
	actuator Actuator
	tasks    []*loopTask

	clock    clock.Clock
	recorder *ftdc.Logger
	gui      *gui.StateBuilder
	logger   logging.Logger

	workers  *utils.Workers
	ticks    int
	overruns int
}

// NewLoop constructs a loop and loads the tasks of cfg against the current snapshot of source.
func NewLoop(ctx context.Context, logger logging.Logger, cfg Config, source StateSource, opts Options) (*Loop, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	l := &Loop{
		cfg:      cfg,
		dt:       cfg.Period(),
		source:   source,
		clock:    opts.Clock,
		recorder: opts.Recorder,
		gui:      opts.GUI,
		logger:   logger,
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	if actuator, ok := source.(Actuator); ok {
		l.actuator = actuator
	}
	if len(cfg.Tasks) == 0 {
		return l, nil
	}

	robots, err := source.Robots(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read the robot state")
	}
	for idx, taskCfg := range cfg.Tasks {
		task, err := tasks.Load(taskCfg, robots, cfg.Dt(), logger.Sublogger("tasks"))
		if err != nil {
			return nil, errors.Wrapf(err, "task %d", idx)
		}
		completion, err := tasks.LoadCompletionCriteria(task, taskCfg, cfg.Dt())
		if err != nil {
			return nil, errors.Wrapf(err, "completion criteria of task %q", task.Name())
		}
		if err := l.AddTask(task, completion); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddTask appends a task to the loop. completion may be nil for a task that never completes.
func (l *Loop) AddTask(task tasks.MetaTask, completion tasks.CompletionCriteria) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(task.Name()) >= 0 {
		return errors.Errorf("a task named %q is already in the loop", task.Name())
	}
	l.tasks = append(l.tasks, &loopTask{task: task, completion: completion})
	if l.recorder != nil {
		task.AddToLogger(l.recorder)
	}
	if l.gui != nil {
		task.AddToGUI(l.gui)
	}
	l.logger.Debugw("task added", "task", task.Name(), "type", task.Type())
	return nil
}

// RemoveTask removes a task and retracts its telemetry and GUI elements.
func (l *Loop) RemoveTask(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(name)
	if idx < 0 {
		return errors.Errorf("no task named %q in the loop", name)
	}
	task := l.tasks[idx].task
	if l.recorder != nil {
		task.RemoveFromLogger(l.recorder)
	}
	if l.gui != nil {
		task.RemoveFromGUI(l.gui)
	}
	l.tasks = slices.Delete(l.tasks, idx, idx+1)
	l.logger.Debugw("task removed", "task", name)
	return nil
}

func (l *Loop) indexOf(name string) int {
	return slices.IndexFunc(l.tasks, func(t *loopTask) bool { return t.task.Name() == name })
}

// Task returns the named task.
func (l *Loop) Task(name string) (tasks.MetaTask, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(name)
	if idx < 0 {
		return nil, false
	}
	return l.tasks[idx].task, true
}

// Tasks returns the tasks in update order.
func (l *Loop) Tasks() []tasks.MetaTask {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.taskList()
}

func (l *Loop) taskList() []tasks.MetaTask {
	out := make([]tasks.MetaTask, len(l.tasks))
	for idx, t := range l.tasks {
		out[idx] = t.task
	}
	return out
}

// Status returns the completion state of the named task.
func (l *Loop) Status(name string) (TaskStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(name)
	if idx < 0 {
		return TaskStatus{}, errors.Errorf("no task named %q in the loop", name)
	}
	return l.tasks[idx].status, nil
}

// Done reports whether every task with completion criteria has completed. A loop whose tasks have
// no criteria is never done.
func (l *Loop) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	withCriteria := 0
	for _, t := range l.tasks {
		if t.completion == nil {
			continue
		}
		withCriteria++
		if !t.status.Done {
			return false
		}
	}
	return withCriteria > 0
}

// HandleGUI forwards user input to the GUI between two ticks.
func (l *Loop) HandleGUI(path []string, name string, data any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.gui == nil {
		return errors.New("the loop has no GUI")
	}
	return l.gui.Handle(path, name, data)
}

// Step runs one tick synchronously.
func (l *Loop) Step(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.step(ctx)
}

func (l *Loop) step(ctx context.Context) error {
	robots, err := l.source.Robots(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot read the robot state")
	}
	for _, t := range l.tasks {
		if err := t.task.Update(robots); err != nil {
			return errors.Wrapf(err, "cannot update task %q", t.task.Name())
		}
	}
	for _, t := range l.tasks {
		if t.completion == nil || t.status.Done {
			continue
		}
		if done, msg := t.completion(t.task, robots); done {
			t.status = TaskStatus{Done: true, Criteria: msg, Tick: l.ticks}
			l.logger.Infow("task completed", "task", t.task.Name(), "criteria", msg, "tick", l.ticks)
		}
	}
	if l.actuator != nil {
		if err := l.actuator.Apply(ctx, l.cfg.Dt(), l.taskList()); err != nil {
			return errors.Wrap(err, "cannot apply the task outputs")
		}
	}
	if l.recorder != nil {
		if err := l.recorder.Record(l.clock.Now()); err != nil {
			return errors.Wrap(err, "cannot record telemetry")
		}
	}
	l.ticks++
	return nil
}

// tick runs one step from the background worker and accounts for overruns.
func (l *Loop) tick(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := l.clock.Now()
	if err := l.step(ctx); err != nil {
		l.logger.Errorw("control cycle failed", "tick", l.ticks, "error", err)
		return
	}
	if elapsed := l.clock.Since(start); elapsed > l.dt {
		l.overruns++
		if l.overruns == 1 {
			l.logger.Warnw("control cycle overran its period", "tick", l.ticks, "elapsed", elapsed, "period", l.dt)
		} else {
			l.logger.Debugw("control cycle overran its period", "tick", l.ticks, "elapsed", elapsed, "overruns", l.overruns)
		}
	}
}

// Start runs the loop in the background until Stop.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.workers != nil {
		return errors.New("control loop already running")
	}
	l.logger.Infow("running control loop", "frequency", l.cfg.Frequency, "period", l.dt, "tasks", len(l.tasks))
	// The ticker is created before the worker starts so that a mock clock advanced right after
	// Start reaches it.
	ticker := l.clock.Ticker(l.dt)
	l.workers = utils.NewWorkers(func(ctx context.Context) {
		defer ticker.Stop()
		for {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.tick(ctx)
			}
		}
	})
	return nil
}

// Stop stops the loop and waits for the current tick to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	workers := l.workers
	l.workers = nil
	l.mu.Unlock()

	if workers == nil {
		return
	}
	l.logger.Debug("closing loop")
	workers.Stop()
}

// Running reports whether the loop was started and not stopped.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.workers != nil
}

// Frequency returns the loop's frequency.
func (l *Loop) Frequency() float64 {
	return l.cfg.Frequency
}

// Period returns the loop's period.
func (l *Loop) Period() time.Duration {
	return l.dt
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Overruns returns the number of background ticks that took longer than the period.
func (l *Loop) Overruns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overruns
}

// GetConfig returns the control loop config.
func (l *Loop) GetConfig() Config {
	return l.cfg
}
