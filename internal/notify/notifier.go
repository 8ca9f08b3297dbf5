package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ryanbastic/go-nftcollection/internal/metrics"
)

// DefaultDrainTimeout bounds how long Close waits for in-flight deliveries.
const DefaultDrainTimeout = 10 * time.Second

// Option configures a Notifier.
type Option func(*Notifier)

// WithDrainTimeout sets how long Close waits before canceling deliveries.
func WithDrainTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.drainTimeout = d }
}

// Notifier dispatches collection events to subscribers via JSON-RPC.
type Notifier struct {
	registry     *Registry
	client       *Client
	logger       *slog.Logger
	drainTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewNotifier(registry *Registry, client *Client, logger *slog.Logger, opts ...Option) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		registry:     registry,
		client:       client,
		logger:       logger,
		drainTimeout: DefaultDrainTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Registry returns the subscriber set the notifier reads from.
func (n *Notifier) Registry() *Registry {
	return n.registry
}

func (n *Notifier) NotifyDeployed(ev CollectionDeployed) {
	n.notify(EventCollectionDeployed, ev)
}

func (n *Notifier) NotifyMinted(ev ItemMinted) {
	n.notify(EventItemMinted, ev)
}

// notify fires a goroutine per subscriber. Errors are logged, not
// propagated; the caller never waits on a slow subscriber.
func (n *Notifier) notify(event string, params any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, s := range n.registry.ForEvent(event) {
		n.wg.Add(1)
		go func(endpoint, name string) {
			defer n.wg.Done()
			resp, err := n.client.Call(n.ctx, endpoint, event, params)
			if err == nil && resp.Error != nil {
				err = resp.Error
			}
			metrics.ObserveWebhook(event, err)
			if err != nil {
				n.logger.Error("webhook delivery failed", "event", event, "subscriber", name, "endpoint", endpoint, "error", err)
				return
			}
			n.logger.Debug("webhook delivered", "event", event, "subscriber", name)
		}(s.Endpoint, s.Name)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Shutdown stops accepting events and waits for in-flight deliveries,
// retries included, until ctx is done. Deliveries still running then are
// canceled and ctx.Err() is returned.
func (n *Notifier) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	n.cancel()
	<-done
	n.client.CloseIdleConnections()
	return err
}

// Close is Shutdown bounded by the drain timeout.
func (n *Notifier) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), n.drainTimeout)
	defer cancel()
	if err := n.Shutdown(ctx); err != nil {
		n.logger.Warn("webhook deliveries canceled on close", "error", err)
	}
}
