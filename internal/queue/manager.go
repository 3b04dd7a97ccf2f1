package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mxf2proxy/internal/events"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/services"
)

// Runner converts one job. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job, tracker pipeline.Tracker) pipeline.Result
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithEstimator replaces the submit-time clip counter.
func WithEstimator(fn func(source string) int) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.estimate = fn
		}
	}
}

// WithIDGenerator replaces the job ID source.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithResultHook registers fn to run after each batch, before the next one
// starts.
func WithResultHook(fn func(pipeline.Result)) ManagerOption {
	return func(m *Manager) {
		m.onResult = fn
	}
}

var _ pipeline.Tracker = (*Manager)(nil)

// Manager serializes batch execution. At most one job is active; the rest
// wait in submission order.
type Manager struct {
	ctx       context.Context
	runner    Runner
	publisher events.Publisher
	logger    *slog.Logger
	estimate  func(string) int
	newID     func() string
	onResult  func(pipeline.Result)
	now       func() time.Time

	mu          sync.Mutex
	active      *Job
	queued      []Job
	outstanding int
	status      string
	finished    int
	last        *pipeline.Result
	idle        chan struct{}
	wg          sync.WaitGroup
}

// NewManager returns a Manager whose batches run under ctx. Cancelling ctx
// stops the active batch before its next clip and leaves queued jobs
// unstarted.
func NewManager(ctx context.Context, runner Runner, publisher events.Publisher, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if publisher == nil {
		publisher = events.Nop{}
	}
	idle := make(chan struct{})
	close(idle)
	m := &Manager{
		ctx:       ctx,
		runner:    runner,
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "queue"),
		estimate:  pipeline.CountClips,
		newID:     uuid.NewString,
		now:       time.Now,
		idle:      idle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit enqueues source. It returns false without changing anything when
// the canonical path is already active or queued.
func (m *Manager) Submit(ctx context.Context, source string) (Job, bool, error) {
	path, isDir, err := inspect(source)
	if err != nil {
		return Job{}, false, err
	}
	// Estimating walks the source; keep it outside the lock.
	estimate := m.estimate(path)

	m.mu.Lock()
	if dup := m.findLocked(path); dup != nil {
		m.mu.Unlock()
		m.logger.Debug("duplicate submission ignored", logging.String("source", path), logging.String(logging.FieldJobID, dup.ID))
		return *dup, false, nil
	}
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return Job{}, false, services.Wrap(services.ErrCancelled, "queue", "submit", "queue is shutting down", m.ctx.Err())
	}
	job := Job{
		ID:          m.newID(),
		Source:      path,
		IsDir:       isDir,
		Estimate:    estimate,
		SubmittedAt: m.now(),
	}
	m.queued = append(m.queued, job)
	m.outstanding += job.Estimate
	outstanding := m.outstanding
	select {
	case <-m.idle:
		m.idle = make(chan struct{})
	default:
	}
	m.mu.Unlock()

	m.logger.Info("source queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.Source),
		logging.Int("estimate", job.Estimate),
	)
	m.publisher.Publish(ctx, events.Event{
		Kind:        events.KindJobQueued,
		JobID:       job.ID,
		Source:      job.Source,
		Clips:       job.Estimate,
		Outstanding: outstanding,
	})
	m.publishOutstanding(ctx, outstanding)
	m.advance()
	return job, true, nil
}

func (m *Manager) findLocked(path string) *Job {
	if m.active != nil && m.active.Source == path {
		job := *m.active
		return &job
	}
	for i := range m.queued {
		if m.queued[i].Source == path {
			job := m.queued[i]
			return &job
		}
	}
	return nil
}

// advance starts the head of the queue when nothing is running.
func (m *Manager) advance() {
	m.mu.Lock()
	if m.active != nil || len(m.queued) == 0 {
		m.mu.Unlock()
		return
	}
	if m.ctx.Err() != nil {
		m.becomeIdleLocked()
		m.mu.Unlock()
		return
	}
	job := m.queued[0]
	m.queued = m.queued[1:]
	job.StartedAt = m.now()
	m.active = &job
	m.wg.Add(1)
	m.mu.Unlock()

	go m.work(job)
}

func (m *Manager) work(job Job) {
	defer m.wg.Done()
	ctx := services.WithJobID(m.ctx, job.ID)
	m.logger.Info("batch starting",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.Source),
	)
	result := m.runner.Run(ctx, pipeline.Job{ID: job.ID, Source: job.Source}, m)

	if m.onResult != nil {
		m.onResult(result)
	}

	m.mu.Lock()
	m.active = nil
	m.finished++
	m.last = &result
	m.status = ""
	if len(m.queued) == 0 || m.ctx.Err() != nil {
		m.becomeIdleLocked()
	}
	m.mu.Unlock()

	m.logger.Info("batch done",
		logging.String(logging.FieldEventType, "job_done"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("status", string(result.Status)),
	)
	m.advance()
}

func (m *Manager) becomeIdleLocked() {
	select {
	case <-m.idle:
	default:
		close(m.idle)
	}
}

// Decrement lowers the outstanding counter by one, never below zero.
func (m *Manager) Decrement() {
	m.mu.Lock()
	if m.outstanding > 0 {
		m.outstanding--
	}
	outstanding := m.outstanding
	m.mu.Unlock()
	m.publishOutstanding(m.ctx, outstanding)
}

// Reset zeroes the outstanding counter.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.outstanding = 0
	m.mu.Unlock()
	m.publishOutstanding(m.ctx, 0)
}

// SetStatus replaces the status text shown to observers.
func (m *Manager) SetStatus(text string) {
	m.mu.Lock()
	m.status = text
	active := ""
	if m.active != nil {
		active = m.active.ID
	}
	m.mu.Unlock()
	m.publisher.Publish(m.ctx, events.Event{Kind: events.KindStatus, JobID: active, Status: text})
}

func (m *Manager) publishOutstanding(ctx context.Context, n int) {
	m.publisher.Publish(ctx, events.Event{Kind: events.KindOutstanding, Outstanding: n})
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Queued:      append([]Job(nil), m.queued...),
		Outstanding: m.outstanding,
		Status:      m.status,
		Finished:    m.finished,
	}
	if m.active != nil {
		job := *m.active
		snap.Active = &job
	}
	if m.last != nil {
		last := *m.last
		snap.Last = &last
	}
	return snap
}

// Idle reports whether no job is active or waiting.
func (m *Manager) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active == nil && len(m.queued) == 0
}

// Wait blocks until the manager is idle or ctx ends. After the manager's
// own context is cancelled it returns once the active batch stops.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()
	select {
	case <-idle:
		m.wg.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
