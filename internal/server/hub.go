// Package server tracks live clients and fans chat messages out to them via
// the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const sendBufferSize = 256

// Hub is the registry of connected clients. A client is registered exactly
// while its connection is open. All methods are safe for concurrent use.
type Hub struct {
	clients map[*Client]struct{}
	mutex   sync.RWMutex
	names   NameGenerator

	maxMessageSize int64
	rateLimit      RateLimitConfig

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithNameGenerator sets how display names are generated.
func WithNameGenerator(names NameGenerator) HubOption {
	return func(h *Hub) {
		if names != nil {
			h.names = names
		}
	}
}

// WithClientLimits sets the read limit and message rate applied to every
// client registered afterwards.
func WithClientLimits(maxMessageSize int64, rateLimit RateLimitConfig) HubOption {
	return func(h *Hub) {
		if maxMessageSize > 0 {
			h.maxMessageSize = maxMessageSize
		}
		if rateLimit.Burst > 0 && rateLimit.RefillInterval > 0 {
			h.rateLimit = rateLimit
		}
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	defaults := defaultConfig()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:        make(map[*Client]struct{}),
		names:          RandomName,
		maxMessageSize: defaults.MaxMessageSize,
		rateLimit:      defaults.RateLimit,
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Context is cancelled when the hub shuts down.
func (h *Hub) Context() context.Context {
	return h.ctx
}

// Register creates a client for conn, assigns it a display name and adds it
// to the live set. conn may be nil in tests that only observe the send queue.
func (h *Hub) Register(conn *websocket.Conn, addr string) *Client {
	client := newClient(conn, h, addr)

	h.mutex.Lock()
	client.name = h.names()
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.mutex.Unlock()

	log.Printf("Client %q (%s) connected from %s. Total clients: %d", client.name, client.id, client.addr, clientCount)
	return client
}

// Unregister removes client from the live set and closes its send queue.
// It reports whether the client was registered; repeated calls are no-ops.
func (h *Hub) Unregister(client *Client) bool {
	if client == nil {
		return false
	}

	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	log.Printf("Client %q disconnected from %s. Total clients: %d", client.name, client.addr, clientCount)
	return true
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues text for every client registered when the call starts
// and returns the number of delivery attempts. A client whose queue is full
// is evicted; it never delays delivery to the others.
func (h *Hub) Broadcast(text string) int {
	clients := h.getClientSnapshot()
	if len(clients) == 0 {
		return 0
	}

	log.Debugf("Broadcasting message to %d clients", len(clients))

	clientsToRemove := h.broadcastToClients(clients, []byte(text))
	h.removeFailedClients(clientsToRemove)
	return len(clients)
}

// SendTo queues text for a single client and reports whether it was accepted.
func (h *Hub) SendTo(client *Client, text string) bool {
	if client == nil {
		return false
	}
	if h.safeSend(client, []byte(text)) {
		return true
	}
	h.removeFailedClients([]*Client{client})
	return false
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// broadcastToClients sends the message to every client and returns the ones that failed
func (h *Hub) broadcastToClients(clients []*Client, message []byte) []*Client {
	var clientsToRemove []*Client

	for _, client := range clients {
		if !h.safeSend(client, message) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	return clientsToRemove
}

// removeFailedClients evicts clients that could not take a message and closes their queues
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			log.Warnf("Client %q from %s removed due to full send buffer", client.name, client.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// Start launches the read and write pumps of a registered client. Messages
// read from the connection are passed to handler in receipt order.
func (h *Hub) Start(client *Client, handler MessageHandler) {
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump(h.ctx, handler)
	}()
}

// shutdownClients closes all active client connections
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.getClientSnapshot()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown cancels in-flight commands, closes every connection and waits
// for the client goroutines to finish or the timeout to expire.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	h.shutdownClients()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

func newClientID() string {
	return uuid.NewString()
}
