// Package server coordinates client registration, event relay, and connection
// cleanup for the relay via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub is the single event loop of the relay. It owns the Registry: every
// registration, membership change and fan-out runs on the Run goroutine, so
// the Registry itself needs no locking.
type Hub struct {
	registry   *Registry
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	queries    chan func(*Registry)
	logger     *zap.Logger
	now        func() time.Time
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

type inboundEvent struct {
	client   *Client
	envelope Envelope
}

// NewHub creates a Hub around registry. A nil registry gets a fresh one and a
// nil logger discards output.
func NewHub(registry *Registry, logger *zap.Logger) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		queries:    make(chan func(*Registry)),
		logger:     logger,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands c to the loop. It returns false once the hub is shutting down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister removes c from the loop. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Dispatch queues an inbound event from c. Events from one client are handled
// in the order they are dispatched.
func (h *Hub) Dispatch(c *Client, env Envelope) bool {
	select {
	case h.inbound <- inboundEvent{client: c, envelope: env}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Inspect runs fn on the loop goroutine and waits for it to return. fn must
// not retain the Registry.
func (h *Hub) Inspect(fn func(*Registry)) bool {
	finished := make(chan struct{})
	query := func(r *Registry) {
		defer close(finished)
		fn(r)
	}

	select {
	case h.queries <- query:
	case <-h.ctx.Done():
		return false
	}
	<-finished
	return true
}

// ClientCount returns the number of registered clients, or 0 after shutdown.
func (h *Hub) ClientCount() int {
	var n int
	h.Inspect(func(r *Registry) { n = r.Len() })
	return n
}

// Run starts the hub's main event loop. It should be called in a separate
// goroutine and returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case ev := <-h.inbound:
			h.handleEvent(ev.client, ev.envelope)

		case query := <-h.queries:
			query(h.registry)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.logger.Warn("received nil client registration; skipping")
		return
	}
	if !h.registry.Add(client) {
		return
	}

	client.logger.Info("user connected",
		zap.String("addr", client.addr),
		zap.Int("clients", h.registry.Len()))

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleDisconnect drops every membership of client without notifying its
// former room peers.
func (h *Hub) handleDisconnect(client *Client) {
	rooms, ok := h.registry.Remove(client)
	if !ok {
		return
	}
	close(client.send)

	client.logger.Info("user disconnected",
		zap.Strings("rooms", rooms),
		zap.Int("clients", h.registry.Len()))
}

// deliver queues frame on every target. Targets whose send buffer is full are
// removed from the registry afterwards.
func (h *Hub) deliver(targets []*Client, frame []byte) {
	var clientsToRemove []*Client

	for _, client := range targets {
		select {
		case client.send <- frame:
		default:
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	for _, client := range clientsToRemove {
		if _, ok := h.registry.Remove(client); ok {
			close(client.send)
			client.logger.Warn("client removed due to full send buffer")
		}
	}
}

// shutdownClients closes every live connection and empties the registry.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	clients := h.registry.Clients()
	for _, client := range clients {
		h.registry.Remove(client)
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.logger.Warn("error closing client connection", zap.Error(err))
			}
		}
	}

	h.logger.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown stops the loop and waits for all client goroutines to finish,
// or until timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
