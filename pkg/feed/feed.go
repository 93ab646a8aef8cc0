// Package feed maintains a receive-only websocket connection to a data
// source. It reconnects with capped exponential backoff, unwraps doubly
// serialized envelopes, and hands each decoded message to a single handler
// on the caller's task loop.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/logging"
	"github.com/grovetools/chartview/pkg/loop"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFloor   = time.Second
	DefaultCeiling = 30 * time.Second
)

// Status describes the link.
type Status string

const (
	StatusStopped    Status = "stopped"
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusRetrying   Status = "closed-retrying"
)

// State is a snapshot of the connection.
type State struct {
	URL            string        `json:"url"`
	Status         Status        `json:"status"`
	CurrentBackoff time.Duration `json:"current_backoff"`
	Attempts       int           `json:"attempts"`
}

// Handler receives each effective message. It runs on the scheduler's loop
// and must not block.
type Handler func(msg interface{})

// Scheduler runs feed callbacks. *loop.Loop satisfies it.
type Scheduler interface {
	Post(fn func()) bool
	After(d time.Duration, fn func()) *loop.Task
}

// Config configures a Feed. Zero values take defaults.
type Config struct {
	URL          string
	WrapperField string
	Floor        time.Duration
	Ceiling      time.Duration
	// ReadTimeout closes a link that delivers neither frames nor pongs for
	// this long. Zero disables the deadline.
	ReadTimeout time.Duration

	Dialer Dialer
	Codec  Codec
	Logger *logrus.Entry
}

// Feed is a reconnecting websocket client.
type Feed struct {
	cfg     Config
	sched   Scheduler
	handler Handler
	logger  *logrus.Entry

	mu         sync.Mutex
	running    bool
	gen        uint64
	status     Status
	backoff    time.Duration
	attempts   int
	conn       Conn
	retry      *loop.Task
	cancelDial context.CancelFunc
}

// New creates a stopped Feed. Messages are delivered to handler through sched.
func New(cfg Config, sched Scheduler, handler Handler) *Feed {
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultCeiling
	}
	if cfg.Ceiling < cfg.Floor {
		cfg.Ceiling = cfg.Floor
	}
	if cfg.Dialer == nil {
		cfg.Dialer = NewWebsocketDialer(nil)
	}
	if cfg.Codec == nil {
		cfg.Codec = DefaultCodec
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("feed")
	}

	return &Feed{
		cfg:     cfg,
		sched:   sched,
		handler: handler,
		logger:  logger.WithField("url", cfg.URL),
		status:  StatusStopped,
		backoff: cfg.Floor,
	}
}

// Start connects and keeps reconnecting until Stop. Calling Start on a
// running feed does nothing.
func (f *Feed) Start() {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.gen++
	gen := f.gen
	f.backoff = f.cfg.Floor
	f.attempts = 0
	f.status = StatusConnecting
	f.mu.Unlock()

	f.logger.Info("Starting feed")
	go f.connect(gen)
}

// Stop closes the link and cancels any pending reconnect. It is idempotent;
// a later Start begins again from the floor backoff.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	f.gen++
	f.status = StatusStopped
	f.backoff = f.cfg.Floor

	if f.retry != nil {
		f.retry.Cancel()
		f.retry = nil
	}
	if f.cancelDial != nil {
		f.cancelDial()
		f.cancelDial = nil
	}
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.logger.Info("Feed stopped")
}

// IsOpen reports whether a connection is currently established.
func (f *Feed) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status == StatusOpen
}

// Status returns a snapshot of the connection state.
func (f *Feed) Status() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		URL:            f.cfg.URL,
		Status:         f.status,
		CurrentBackoff: f.backoff,
		Attempts:       f.attempts,
	}
}

// Attempts returns the number of dials since the last Start.
func (f *Feed) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// current reports whether gen still identifies the live run. Callers hold f.mu.
func (f *Feed) current(gen uint64) bool {
	return f.running && f.gen == gen
}

func (f *Feed) connect(gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.mu.Lock()
	if !f.current(gen) {
		f.mu.Unlock()
		return
	}
	f.cancelDial = cancel
	f.attempts++
	attempt := f.attempts
	f.status = StatusConnecting
	f.mu.Unlock()

	f.logger.WithField("attempt", attempt).Debug("Dialing")
	conn, err := f.cfg.Dialer.Dial(ctx, f.cfg.URL)

	f.mu.Lock()
	f.cancelDial = nil
	if !f.current(gen) {
		f.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		f.mu.Unlock()
		f.closed(gen, errors.TransportFailed(f.cfg.URL, err))
		return
	}
	f.conn = conn
	f.status = StatusOpen
	f.backoff = f.cfg.Floor
	f.mu.Unlock()

	f.logger.Info("Connected to data source")
	f.read(gen, conn)
}

func (f *Feed) read(gen uint64, conn Conn) {
	if f.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		})
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			f.closed(gen, errors.TransportFailed(f.cfg.URL, err))
			return
		}
		if f.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		msg, err := Unwrap(f.cfg.Codec, data, f.cfg.WrapperField)
		if err != nil {
			f.logger.WithError(err).WithField("bytes", len(data)).Warn("Discarding undecodable frame")
			continue
		}
		f.sched.Post(func() { f.deliver(gen, msg) })
	}
}

func (f *Feed) deliver(gen uint64, msg interface{}) {
	f.mu.Lock()
	ok := f.current(gen)
	f.mu.Unlock()
	if ok && f.handler != nil {
		f.handler(msg)
	}
}

// closed records the loss of a link and arms the next attempt.
func (f *Feed) closed(gen uint64, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.current(gen) {
		return
	}

	f.conn = nil
	f.status = StatusRetrying
	delay := f.backoff
	f.backoff *= 2
	if f.backoff > f.cfg.Ceiling {
		f.backoff = f.cfg.Ceiling
	}
	if delay > f.cfg.Ceiling {
		delay = f.cfg.Ceiling
	}

	f.logger.WithError(cause).WithField("retry_in", delay).Warn("Connection closed, scheduling reconnect")
	f.retry = f.sched.After(delay, func() {
		f.mu.Lock()
		ok := f.current(gen)
		if ok {
			f.retry = nil
		}
		f.mu.Unlock()
		if ok {
			go f.connect(gen)
		}
	})
}
