package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/crypto-factory/internal/monitor"
	"github.com/rickgao/crypto-factory/internal/snapshot"
)

// StreamState is the lifecycle state of a Stream collector.
type StreamState string

const (
	StateConnecting StreamState = "connecting"
	StateStreaming  StreamState = "streaming"
	StateBackoff    StreamState = "backoff"
	StateStopped    StreamState = "stopped"
)

// MessageHandler parses one raw WebSocket message and returns the
// fields it contributes, or nil to ignore the message. Handlers may
// keep rolling state (trade windows, last-seen books); that state
// survives reconnects because the handler outlives the socket.
type MessageHandler func(msg []byte) (map[string]float64, error)

// StreamConfig holds stream connection settings.
type StreamConfig struct {
	URL            string
	ReconnectWait  time.Duration // fixed delay between reconnect attempts
	HandshakeWait  time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultStreamConfig returns sensible defaults for a public market
// data stream.
func DefaultStreamConfig(url string) StreamConfig {
	return StreamConfig{
		URL:           url,
		ReconnectWait: 5 * time.Second,
		HandshakeWait: 10 * time.Second,
		PingInterval:  30 * time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// Stream holds a WebSocket open and merges handler output into the
// source snapshot as messages arrive. On any read or dial failure it
// enters backoff, waits a fixed delay, and reconnects; the last
// snapshot stays visible throughout.
type Stream struct {
	name    string
	cfg     StreamConfig
	handler MessageHandler
	store   *snapshot.Store
	tracker *monitor.CallTracker
	logger  *slog.Logger

	mu    sync.RWMutex
	state StreamState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStream creates a Stream collector for a named source.
func NewStream(name string, cfg StreamConfig, handler MessageHandler, tracker *monitor.CallTracker, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		name:    name,
		cfg:     cfg,
		handler: handler,
		store:   snapshot.New(),
		tracker: tracker,
		logger:  logger.With("source", name),
		state:   StateStopped,
	}
}

// Name returns the source name.
func (s *Stream) Name() string { return s.name }

// Snapshot returns a copy of the latest merged fields.
func (s *Stream) Snapshot() map[string]float64 { return s.store.Snapshot() }

// UpdatedAt returns when the snapshot last changed.
func (s *Stream) UpdatedAt() time.Time { return s.store.UpdatedAt() }

// State returns the current lifecycle state.
func (s *Stream) State() StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stream) setState(st StreamState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Start launches the connect/read loop.
func (s *Stream) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.setState(StateConnecting)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("stream started", "url", s.cfg.URL)
	return nil
}

// Stop gracefully shuts down the stream.
func (s *Stream) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.setState(StateStopped)
		s.logger.Info("stream stopped")
		return nil
	case <-ctx.Done():
		s.setState(StateStopped)
		return ctx.Err()
	}
}

// run cycles through connect, read-until-failure, backoff.
func (s *Stream) run() {
	defer s.wg.Done()

	for {
		if s.ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("dial failed", "err", err)
			if s.tracker != nil {
				s.tracker.Record(monitor.CallRecord{
					Success:  false,
					ErrClass: monitor.ErrClassNetwork,
					ErrMsg:   err.Error(),
				})
			}
			if !s.backoff() {
				return
			}
			continue
		}

		s.setState(StateStreaming)
		s.logger.Info("stream connected")

		err = s.readLoop(conn)
		conn.Close()

		if s.ctx.Err() != nil {
			return
		}

		s.logger.Warn("stream disconnected", "err", err)
		if s.tracker != nil {
			s.tracker.Record(monitor.CallRecord{
				Success:  false,
				ErrClass: monitor.ErrClassDisconnect,
				ErrMsg:   err.Error(),
			})
		}
		if !s.backoff() {
			return
		}
	}
}

// backoff waits the fixed reconnect delay. It returns false when the
// stream is shutting down.
func (s *Stream) backoff() bool {
	s.setState(StateBackoff)
	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(s.cfg.ReconnectWait):
		return true
	}
}

func (s *Stream) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeWait,
	}
	conn, _, err := dialer.DialContext(s.ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	if s.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data),
			time.Now().Add(s.cfg.WriteTimeout))
	})

	return conn, nil
}

// readLoop reads messages until the connection fails, merging handler
// output into the snapshot. It returns the terminal read error.
func (s *Stream) readLoop(conn *websocket.Conn) error {
	// Keepalive pings on a side goroutine; the read loop owns the
	// connection lifetime.
	pingDone := make(chan struct{})
	defer close(pingDone)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-s.ctx.Done():
				// Unblocks the pending read so shutdown is not held
				// hostage by a quiet connection.
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(s.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
					s.logger.Debug("failed to send ping", "err", err)
				}
			}
		}
	}()

	for {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		fields, err := s.handler(data)
		if err != nil {
			s.logger.Debug("message dropped", "err", err)
			if s.tracker != nil {
				s.tracker.Record(monitor.CallRecord{
					Success:  false,
					ErrClass: monitor.ErrClassProtocol,
					ErrMsg:   err.Error(),
				})
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}

		s.store.Merge(fields)
	}
}
