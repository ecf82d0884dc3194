package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/martinsuchenak/geotoolkit/internal/log"
	"github.com/robfig/cron/v3"
)

var (
	ErrTaskExists   = errors.New("task already registered")
	ErrTaskNotFound = errors.New("task not found")
)

// TaskStatus is the state of a task's most recent run
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskHandler is the function executed by a task
type TaskHandler func(ctx context.Context, taskID string) error

// Task is a recurring task driven by a cron expression
type Task struct {
	ID       string
	Name     string
	Spec     string
	NextRun  time.Time
	LastRun  *time.Time
	LastErr  error
	Status   TaskStatus
	schedule cron.Schedule
	handler  TaskHandler
}

// Scheduler submits due tasks to a worker pool. A task never overlaps
// itself: it is skipped while its previous run is still going.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	pool    *WorkerPool
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// tick is how often the loop looks for due tasks
	tick time.Duration
}

// NewScheduler creates a new scheduler on pool
func NewScheduler(pool *WorkerPool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*Task),
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
		tick:   10 * time.Second,
	}
}

// AddTask registers a task under a standard five-field cron expression or
// descriptor such as "@hourly".
func (s *Scheduler) AddTask(id, name, spec string, handler TaskHandler) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		return fmt.Errorf("%w: %s", ErrTaskExists, id)
	}

	task := &Task{
		ID:       id,
		Name:     name,
		Spec:     spec,
		NextRun:  schedule.Next(time.Now()),
		Status:   TaskPending,
		schedule: schedule,
		handler:  handler,
	}
	s.tasks[id] = task

	log.Info("Task registered", "task_id", id, "schedule", spec, "next_run", task.NextRun)
	return nil
}

// Tasks returns a snapshot of the registered tasks
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

// Start starts the scheduler loop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	log.Info("Starting background scheduler")
	s.pool.Start()

	s.wg.Add(1)
	go s.run()
}

// Stop gracefully stops the scheduler and its pool
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Info("Stopping background scheduler")
	s.cancel()
	s.wg.Wait()
	s.pool.Stop()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.checkAndRunTasks(now)
		}
	}
}

// RunNow submits a task immediately, outside its schedule
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status == TaskRunning {
		s.mu.Unlock()
		return nil
	}
	s.markRunning(task, time.Now())
	s.mu.Unlock()

	return s.submit(task)
}

// checkAndRunTasks submits every task due at now
func (s *Scheduler) checkAndRunTasks(now time.Time) {
	s.mu.Lock()
	var due []*Task
	for _, task := range s.tasks {
		if task.Status == TaskRunning {
			continue
		}
		if !now.Before(task.NextRun) {
			s.markRunning(task, now)
			due = append(due, task)
		}
	}
	s.mu.Unlock()

	for _, task := range due {
		if err := s.submit(task); err != nil {
			log.Warn("Failed to submit task", "task_id", task.ID, "error", err)
		}
	}
}

func (s *Scheduler) markRunning(task *Task, now time.Time) {
	task.Status = TaskRunning
	task.LastRun = &now
	task.NextRun = task.schedule.Next(now)
}

func (s *Scheduler) submit(task *Task) error {
	err := s.pool.Submit(Job{
		ID: task.ID,
		Handler: func(ctx context.Context) error {
			log.Info("Running task", "task_id", task.ID, "name", task.Name)
			err := task.handler(ctx, task.ID)
			s.finish(task, err)
			return err
		},
		Dropped: func() { s.drop(task) },
	})
	if err != nil {
		s.finish(task, err)
	}
	return err
}

func (s *Scheduler) finish(task *Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.LastErr = err
	if err != nil {
		task.Status = TaskFailed
		log.Error("Task failed", "task_id", task.ID, "error", err)
		return
	}
	task.Status = TaskCompleted
	log.Info("Task completed", "task_id", task.ID, "next_run", task.NextRun)
}

// drop returns a task whose queued run never started to pending, so it is
// picked up again at its next run time.
func (s *Scheduler) drop(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.Status == TaskRunning {
		task.Status = TaskPending
	}
	log.Warn("Task dropped before it ran", "task_id", task.ID, "next_run", task.NextRun)
}
