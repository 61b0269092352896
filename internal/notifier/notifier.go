// Package notifier forwards domain events to an external webhook through a
// bounded worker pool.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/oneaccess/internal/core/events"
)

type Job struct {
	Event events.Event
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker delivering event", "worker_id", w.ID, "event_id", job.Event.EventID())
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	WebhookURL string
	Timeout    time.Duration
	MaxWorkers int
	QueueSize  int
}

// Dispatcher queues events and POSTs them as JSON to the webhook. A full
// queue drops the event with a warning; delivery never blocks a decision.
type Dispatcher struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once

	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(config Config, logger *slog.Logger) *Dispatcher {
	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		webhookURL: config.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers and the dispatch loop. It is safe to call more
// than once.
func (d *Dispatcher) Start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.deliver)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("webhook notifier started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notifier dispatcher shutting down")
			return
		}
	}
}

// Run starts the pool and blocks until ctx is done, then shuts it down.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	d.Shutdown()
	return nil
}

// Flush waits until every queued event has been attempted or ctx ends. Call
// it once publishers have stopped and before Shutdown.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifier flush: %w", ctx.Err())
	}
}

func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("webhook notifier stopped",
		"delivered", d.delivered.Load(),
		"failed", d.failed.Load(),
		"dropped", d.dropped.Load())
}

// Handle is an events.Handler that enqueues the event for delivery.
func (d *Dispatcher) Handle(_ context.Context, event events.Event) error {
	d.pending.Add(1)
	select {
	case d.jobQueue <- Job{Event: event}:
	default:
		d.pending.Done()
		d.dropped.Add(1)
		d.logger.Warn("notifier queue full, dropping event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"queue_capacity", cap(d.jobQueue))
	}
	return nil
}

// Subscribe registers the dispatcher on bus for each of eventTypes.
func (d *Dispatcher) Subscribe(bus *events.EventBus, eventTypes ...string) {
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, d.Handle)
	}
}

func (d *Dispatcher) Delivered() int64 { return d.delivered.Load() }
func (d *Dispatcher) Dropped() int64   { return d.dropped.Load() }
func (d *Dispatcher) Failed() int64    { return d.failed.Load() }

func (d *Dispatcher) deliver(job Job) {
	defer d.pending.Done()
	if err := d.post(job.Event); err != nil {
		d.failed.Add(1)
		d.logger.Error("webhook delivery failed",
			"event_type", job.Event.EventType(),
			"event_id", job.Event.EventID(),
			"error", err)
		return
	}
	d.delivered.Add(1)
}

func (d *Dispatcher) post(event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", event.EventType())
	req.Header.Set("X-Event-ID", event.EventID())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
