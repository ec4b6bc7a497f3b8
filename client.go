package ferry

import (
	"context"
	"fmt"
	"log/slog"

	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/contracts"
	"github.com/meigma/ferry/internal/registry"
	"github.com/meigma/ferry/internal/relay"
	"github.com/meigma/ferry/internal/safepath"
	"github.com/meigma/ferry/internal/transport"
	"github.com/meigma/ferry/internal/worker"
)

// Client starts transfers and delivers their callbacks on the owner
// goroutine.
type Client struct {
	engine    Engine
	scheduler Scheduler
	loop      *relay.Loop
	logger    *slog.Logger

	validator requestValidator
	runner    transferRunner
	transfers *registry.Registry

	// configuration passed to the default engine
	credStore    credentials.Store
	plainHTTP    bool
	userAgent    string
	progressStep int64
}

// NewClient creates a new ferry client.
//
// By default, transfers use the HTTP/OCI engine, which requires Init, and
// callbacks are queued on the client's Loop. Credentials are resolved from
// Docker config (~/.docker/config.json) and credential helpers unless
// WithCredentials or WithCredentialStore is given.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger:       slog.New(slog.DiscardHandler),
		progressStep: transport.DefaultProgressStep,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	// Wire up default implementations
	if c.engine == nil {
		if c.credStore == nil {
			store, err := transport.DefaultCredentialStore()
			if err != nil {
				return nil, fmt.Errorf("create credential store: %w", err)
			}
			c.credStore = store
		}

		engineOpts := []transport.Option{
			transport.WithCredentialStore(c.credStore),
			transport.WithPlainHTTP(c.plainHTTP),
			transport.WithProgressStep(c.progressStep),
			transport.WithLogger(c.logger),
		}
		if c.userAgent != "" {
			engineOpts = append(engineOpts, transport.WithUserAgent(c.userAgent))
		}
		c.engine = transport.New(engineOpts...)
	}
	if c.scheduler == nil {
		c.loop = relay.NewLoop()
		c.scheduler = c.loop
	}

	c.validator = safepath.NewValidator()
	c.runner = worker.New(c.engine, c.logger)
	c.transfers = registry.New(c.logger)

	return c, nil
}

// Loop returns the client's own task queue, or nil when a Scheduler was
// supplied with WithScheduler. The owner goroutine drives it with Drain or
// Run.
func (c *Client) Loop() *relay.Loop {
	return c.loop
}

// Stats returns the number of transfer goroutines ever spawned and the
// number of transfers not yet disposed.
func (c *Client) Stats() Stats {
	return c.transfers.Stats()
}

// Wait blocks until no transfer is live or ctx is done.
//
// When the client uses its own Loop, Wait drains it, making the calling
// goroutine the owner until it returns. With a custom Scheduler, the owner
// must keep running elsewhere or Wait never returns.
func (c *Client) Wait(ctx context.Context) error {
	for {
		idle := c.transfers.Idle()
		if c.loop != nil {
			c.loop.Drain()
		}

		var wake <-chan struct{}
		if c.loop != nil {
			wake = c.loop.Wake()
		}
		select {
		case <-idle:
			return nil
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// start validates req, registers a private copy of it and spawns the
// transfer goroutine. Validation failures are returned before anything is
// spawned.
func (c *Client) start(req *core.Request) (*Transfer, error) {
	if err := c.validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if r, ok := c.engine.(contracts.Readiness); ok && !r.Ready() {
		return nil, ErrNotInitialized
	}

	owned := req.Clone()
	ctx, cancel := context.WithCancel(context.Background())
	entry := c.transfers.Add(owned, cancel)
	queue := relay.NewQueue(c.scheduler, func(ev core.Event) {
		c.deliver(entry, owned.Callbacks, ev)
	})

	if err := entry.Start(); err != nil {
		cancel()
		return nil, err
	}
	c.transfers.Spawned()
	go func() {
		defer entry.Exited()
		_ = c.runner.Run(ctx, entry.ID(), owned, queue)
	}()

	return newTransfer(entry, owned), nil
}

// deliver runs on the owner goroutine. The entry is released after the
// terminal callback returns.
func (c *Client) deliver(entry *registry.Entry, cb core.Callbacks, ev core.Event) {
	if ev.Type.IsTerminal() {
		if err := entry.Finish(ev.Type); err != nil {
			c.logger.Warn("unexpected terminal event", "id", entry.ID(), "error", err)
		}
		defer func() {
			if err := c.transfers.Release(entry); err != nil {
				c.logger.Warn("release transfer", "id", entry.ID(), "error", err)
			}
		}()
	}
	dispatch(cb, ev)
}
