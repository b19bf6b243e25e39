package uds

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandlerFunc processes a request and returns a response data payload or error.
type HandlerFunc func(ctx context.Context, c *Conn, req Message) (any, error)

// writeTimeout bounds a single Send so a stalled client cannot block the
// caller indefinitely.
const writeTimeout = 5 * time.Second

// Conn is one connected client. Send is safe for concurrent use.
type Conn struct {
	id uuid.UUID
	nc net.Conn

	mu sync.Mutex
}

func newConn(nc net.Conn) *Conn {
	return &Conn{id: uuid.New(), nc: nc}
}

// ID returns the connection's id.
func (c *Conn) ID() string { return c.id.String() }

// Send writes one message as a single NDJSON line.
func (c *Conn) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.nc.Write(data)
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// Server listens on a Unix domain socket and dispatches NDJSON messages.
type Server struct {
	socketPath   string
	listener     net.Listener
	handlers     map[string]HandlerFunc
	onDisconnect func(*Conn)
	clients      map[*Conn]struct{}
	mu           sync.RWMutex
	logger       *slog.Logger
}

// NewServer creates a new UDS server.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handlers:   make(map[string]HandlerFunc),
		clients:    make(map[*Conn]struct{}),
		logger:     logger,
	}
}

// Handle registers a handler for a method.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// OnDisconnect registers a callback run after a client goes away.
func (s *Server) OnDisconnect(fn func(*Conn)) {
	s.onDisconnect = fn
}

// Start begins listening. It removes any stale socket file first.
func (s *Server) Start(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("server listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", "err", err)
			continue
		}
		c := newConn(nc)
		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		go s.handleConn(ctx, c)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown cleanly stops the server.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for c := range s.clients {
		c.Close()
	}
	s.mu.Unlock()
	os.Remove(s.socketPath)
}

func (s *Server) handleConn(ctx context.Context, c *Conn) {
	log := s.logger.With("conn", c.ID())
	log.Debug("client connected")
	defer func() {
		c.Close()
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		if s.onDisconnect != nil {
			s.onDisconnect(c)
		}
		log.Debug("client disconnected")
	}()

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024) // 1MB max line

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Error("invalid message", "err", err)
			continue
		}

		if msg.Type != MsgTypeReq {
			continue
		}

		handler, ok := s.handlers[msg.Method]
		if !ok {
			s.reply(c, NewErrorResponse(msg.ID, msg.Method, fmt.Sprintf("unknown method: %s", msg.Method)))
			continue
		}

		result, err := handler(ctx, c, msg)
		var resp Message
		if err != nil {
			resp = NewErrorResponse(msg.ID, msg.Method, err.Error())
		} else if resp, err = NewResponse(msg.ID, msg.Method, result); err != nil {
			resp = NewErrorResponse(msg.ID, msg.Method, err.Error())
		}
		s.reply(c, resp)
	}
}

func (s *Server) reply(c *Conn, msg Message) {
	if err := c.Send(msg); err != nil {
		s.logger.Error("write response error", "conn", c.ID(), "err", err)
	}
}
