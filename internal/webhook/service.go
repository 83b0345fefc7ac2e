package webhook

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrDispatcherClosed = errors.New("dispatcher is shut down")

// Dispatcher fans events out to subscribed webhooks. Trigger never blocks
// on delivery; each registration runs its own retry sequence.
type Dispatcher struct {
	resolver  *Resolver
	scheduler *Scheduler
	health    HealthStore
	metrics   *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(resolver *Resolver, scheduler *Scheduler, health HealthStore, metrics *Metrics) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		resolver:  resolver,
		scheduler: scheduler,
		health:    health,
		metrics:   metrics,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Trigger captures the envelope now and returns immediately. Resolution,
// delivery and health updates happen in the background; failures are logged
// and never reach the caller.
func (d *Dispatcher) Trigger(tenantID string, event EventType, data map[string]any) {
	if !event.Valid() {
		log.Error().
			Str("tenant_id", tenantID).
			Int("event", int(event)).
			Msg("Dropping trigger with unknown event type")
		return
	}

	env, err := NewEnvelope(event, data).Encode()
	if err != nil {
		log.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("event", event.String()).
			Msg("Failed to marshal webhook payload")
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warn().
			Err(ErrDispatcherClosed).
			Str("tenant_id", tenantID).
			Str("event", event.String()).
			Msg("Dropping trigger received during shutdown")
		return
	}

	d.metrics.trigger(event)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.fanOut(tenantID, env)
	}()
}

func (d *Dispatcher) fanOut(tenantID string, env Encoded) {
	defer d.recoverPanic("", env.Type)

	regs, err := d.resolver.Resolve(d.ctx, tenantID, env.Type)
	if err != nil {
		log.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("event", env.Type.String()).
			Msg("Failed to resolve webhooks for event dispatch")
		return
	}
	if len(regs) == 0 {
		log.Debug().
			Str("tenant_id", tenantID).
			Str("event", env.Type.String()).
			Msg("No webhooks configured for event")
		return
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("event", env.Type.String()).
		Int("webhook_count", len(regs)).
		Msg("Dispatching webhook event")

	for _, reg := range regs {
		d.wg.Add(1)
		go func(reg Registration) {
			defer d.wg.Done()
			d.deliver(reg, env)
		}(reg)
	}
}

func (d *Dispatcher) deliver(reg Registration, env Encoded) {
	defer d.recoverPanic(reg.ID, env.Type)

	d.metrics.sequenceStarted()
	defer d.metrics.sequenceDone()

	final := d.scheduler.DeliverWithRetry(d.ctx, reg, env)

	// A sequence cut short by Shutdown says nothing about the endpoint, so it
	// must not count as a failure. Successes are still recorded.
	if !final.Success && d.ctx.Err() != nil {
		log.Warn().
			Str("webhook_id", reg.ID).
			Str("event", env.Type.String()).
			Int("attempts", final.Attempts).
			Msg("Webhook delivery cancelled by shutdown, health left unchanged")
		return
	}

	ctx := context.WithoutCancel(d.ctx)
	if err := d.health.UpdateHealth(ctx, reg.ID, final.Success); err != nil {
		log.Error().
			Err(err).
			Str("webhook_id", reg.ID).
			Bool("success", final.Success).
			Msg("Failed to update webhook health")
	}
}

func (d *Dispatcher) recoverPanic(webhookID string, event EventType) {
	if r := recover(); r != nil {
		log.Error().
			Str("webhook_id", webhookID).
			Str("event", event.String()).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("Recovered panic in webhook delivery")
	}
}

// Wait blocks until every fan-out started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting triggers and waits for in-flight deliveries until
// ctx expires. Anything still running after that is cancelled and lost.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		// Cancelled sequences still persist their last attempt record.
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
		return ctx.Err()
	}
}
