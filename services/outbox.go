package services

import (
	"context"
	"sync"
	"time"

	"strik-trivia/metrics"

	"github.com/sirupsen/logrus"
)

// Job is one best-effort persistence call.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outbox runs persistence side effects of rounds off the request path.
// Jobs execute one at a time in enqueue order, so a session is always
// created before it is completed. Failures are logged and counted, never
// returned to whoever enqueued the job.
//
// Run's context should outlive the HTTP server and the round manager;
// once Run stops, Enqueue refuses new jobs.
type Outbox struct {
	jobs       chan Job
	metrics    metrics.Recorder
	jobTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
}

func NewOutbox(buffer int, rec metrics.Recorder) *Outbox {
	if buffer <= 0 {
		buffer = 64
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Outbox{
		jobs:       make(chan Job, buffer),
		metrics:    rec,
		jobTimeout: 10 * time.Second,
	}
}

// Enqueue never blocks. A full queue or a stopped outbox drops the job.
func (o *Outbox) Enqueue(job Job) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.stopped {
		logrus.WithField("job", job.Name).Error("[OUTBOX] outbox stopped, dropping job")
		o.metrics.OutboxFailed(job.Name)
		return false
	}
	select {
	case o.jobs <- job:
		return true
	default:
		logrus.WithField("job", job.Name).Error("[OUTBOX] queue full, dropping job")
		o.metrics.OutboxFailed(job.Name)
		return false
	}
}

// Run processes jobs until ctx is cancelled, then drains whatever is queued.
func (o *Outbox) Run(ctx context.Context) {
	logrus.Info("[OUTBOX] worker started")
	for {
		select {
		case <-ctx.Done():
			o.stop()
			n := o.Drain(context.WithoutCancel(ctx))
			logrus.WithField("drained", n).Info("[OUTBOX] worker shutting down")
			return
		case job := <-o.jobs:
			o.process(ctx, job)
		}
	}
}

// Drain runs every queued job synchronously and returns how many ran.
func (o *Outbox) Drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case job := <-o.jobs:
			o.process(ctx, job)
			n++
		default:
			return n
		}
	}
}

// stop makes Enqueue refuse jobs. Senders hold the read lock while they
// push, so nothing lands in the queue after stop returns.
func (o *Outbox) stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
}

// Pending reports the number of queued jobs.
func (o *Outbox) Pending() int {
	return len(o.jobs)
}

func (o *Outbox) process(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, o.jobTimeout)
	defer cancel()

	if err := job.Run(jobCtx); err != nil {
		logrus.WithError(err).WithField("job", job.Name).Warn("[OUTBOX] job failed")
		o.metrics.OutboxFailed(job.Name)
	}
}
