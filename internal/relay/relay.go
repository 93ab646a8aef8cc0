// Package relay implements the websocket broadcast hop between the
// simulation and its viewers. Every valid JSON frame a client sends is
// forwarded verbatim to all other clients.
package relay

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// InvalidJSONReply is sent back to a client whose frame is not valid JSON.
const InvalidJSONReply = `{"error":"invalid JSON format"}`

const (
	DefaultPingInterval = 20 * time.Second
	writeTimeout        = 10 * time.Second
	sendBuffer          = 64
)

// Config configures a Relay.
type Config struct {
	// PingInterval is the keepalive cadence. A client that answers no ping
	// for twice this long is dropped.
	PingInterval time.Duration
}

type frame struct {
	messageType int
	data        []byte
}

type client struct {
	conn   *websocket.Conn
	addr   string
	send   chan frame
	closed chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// Relay is a websocket broadcast hub.
type Relay struct {
	cfg      Config
	logger   *logrus.Entry
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a new Relay instance.
func New(cfg Config, logger *logrus.Entry) *Relay {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	return &Relay{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ListenAndServe accepts websocket clients on addr until Shutdown.
func (r *Relay) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return r.Serve(listener)
}

// Serve accepts websocket clients on an existing listener.
func (r *Relay) Serve(listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/", r)
	r.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	r.logger.WithField("addr", listener.Addr().String()).Info("Relay listening")
	err := r.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting clients and closes every connection.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.logger.Info("Shutting down relay...")
	var err error
	if r.server != nil {
		err = r.server.Shutdown(ctx)
	}

	r.mu.Lock()
	for c := range r.clients {
		c.close()
		delete(r.clients, c)
	}
	r.mu.Unlock()
	return err
}

// Clients returns the number of connected clients.
func (r *Relay) Clients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		addr:   req.RemoteAddr,
		send:   make(chan frame, sendBuffer),
		closed: make(chan struct{}),
	}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	r.logger.WithField("client", c.addr).Info("Client connected")

	go r.writePump(c)
	r.readPump(c)
}

func (r *Relay) remove(c *client) {
	r.mu.Lock()
	_, ok := r.clients[c]
	delete(r.clients, c)
	r.mu.Unlock()
	c.close()
	if ok {
		r.logger.WithField("client", c.addr).Info("Client removed")
	}
}

func (r *Relay) readPump(c *client) {
	defer r.remove(c)

	pongWait := 2 * r.cfg.PingInterval
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.WithError(err).WithField("client", c.addr).Info("Client disconnected unexpectedly")
			} else {
				r.logger.WithField("client", c.addr).Info("Client disconnected")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !sonic.ConfigStd.Valid(data) {
			r.logger.WithField("client", c.addr).Error("Invalid JSON from client")
			r.enqueue(c, frame{websocket.TextMessage, []byte(InvalidJSONReply)})
			continue
		}

		r.logger.WithField("client", c.addr).WithField("bytes", len(data)).Debug("Relaying message")
		r.broadcast(c, frame{messageType, data})
	}
}

func (r *Relay) writePump(c *client) {
	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(f.messageType, f.data); err != nil {
				r.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				r.remove(c)
				return
			}
		case <-c.closed:
			return
		}
	}
}

// broadcast forwards f to every client except from. A client whose queue is
// full is dropped.
func (r *Relay) broadcast(from *client, f frame) {
	r.mu.RLock()
	targets := make([]*client, 0, len(r.clients))
	for c := range r.clients {
		if c != from {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if !r.enqueue(c, f) {
			r.logger.WithField("client", c.addr).Warn("Client removed after failed send")
			r.remove(c)
		}
	}
}

func (r *Relay) enqueue(c *client, f frame) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}
