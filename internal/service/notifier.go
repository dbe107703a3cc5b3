package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/signet-id/signet/internal/models"
)

// NotifierConfig tunes best-effort revocation event delivery.
type NotifierConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Buffer       int
}

type delivery struct {
	endpoint string
	event    models.RevocationEvent
	attempt  int
}

// Notifier pushes revocation events to subscribed relying-party endpoints.
// Delivery is fire-and-forget: Notify returns immediately and failures are
// logged, retried a bounded number of times and then dropped. Correctness
// never depends on delivery; the authority remains the ground truth.
type Notifier struct {
	mu        sync.RWMutex
	endpoints map[string]struct{}

	client  *http.Client
	config  NotifierConfig
	logger  *zap.Logger
	metrics *Metrics

	jobs   chan delivery
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotifier builds a notifier seeded with the configured endpoints and
// starts its delivery worker.
func NewNotifier(seedEndpoints []string, logger *zap.Logger, metrics *Metrics, cfg NotifierConfig) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}

	n := &Notifier{
		endpoints: make(map[string]struct{}, len(seedEndpoints)),
		client:    &http.Client{Timeout: cfg.Timeout},
		config:    cfg,
		logger:    logger,
		metrics:   metrics,
		jobs:      make(chan delivery, cfg.Buffer),
	}
	for _, e := range seedEndpoints {
		n.endpoints[e] = struct{}{}
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.wg.Add(1)
	go n.worker()
	return n
}

// Subscribe adds a webhook endpoint to the registry. Idempotent.
func (n *Notifier) Subscribe(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.endpoints[url]; ok {
		return
	}
	n.endpoints[url] = struct{}{}
	n.logger.Info("webhook endpoint subscribed", zap.String("url", url))
}

// Endpoints returns a snapshot of the registered endpoints.
func (n *Notifier) Endpoints() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.endpoints))
	for e := range n.endpoints {
		out = append(out, e)
	}
	return out
}

// Notify enqueues the event for every registered endpoint and returns
// without waiting for delivery. When the queue is full the event is dropped
// for that endpoint; the relying party's cache freshness window bounds the
// resulting staleness.
func (n *Notifier) Notify(event models.RevocationEvent) {
	for _, endpoint := range n.Endpoints() {
		select {
		case n.jobs <- delivery{endpoint: endpoint, event: event}:
		default:
			n.logger.Warn("revocation event dropped, queue full",
				zap.String("endpoint", endpoint), zap.String("token_id", event.TokenID))
			n.metrics.RecordWebhookDelivery(false)
		}
	}
}

// Close stops the delivery worker. Pending events are discarded.
func (n *Notifier) Close() {
	n.cancel()
	n.wg.Wait()
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case job := <-n.jobs:
			if err := n.deliver(job); err != nil {
				n.handleFailure(job, err)
			} else {
				n.metrics.RecordWebhookDelivery(true)
			}
		}
	}
}

func (n *Notifier) deliver(job delivery) error {
	payload, err := json.Marshal(job.event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(n.ctx, n.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return &deliveryError{status: resp.StatusCode}
	}
	return nil
}

func (n *Notifier) handleFailure(job delivery, err error) {
	job.attempt++
	if job.attempt > n.config.MaxRetries {
		n.logger.Error("revocation event delivery exhausted retries",
			zap.String("endpoint", job.endpoint),
			zap.String("token_id", job.event.TokenID),
			zap.Error(err))
		n.metrics.RecordWebhookDelivery(false)
		return
	}
	n.logger.Warn("revocation event delivery failed, retrying",
		zap.String("endpoint", job.endpoint),
		zap.Int("attempt", job.attempt),
		zap.Error(err))

	go func(j delivery) {
		timer := time.NewTimer(n.config.RetryBackoff)
		defer timer.Stop()
		select {
		case <-n.ctx.Done():
		case <-timer.C:
			select {
			case n.jobs <- j:
			case <-n.ctx.Done():
			}
		}
	}(job)
}

type deliveryError struct {
	status int
}

func (e *deliveryError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.status)
}
