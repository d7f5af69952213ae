// Package server streams the annotation state of a workspace to rendering
// clients over WebSocket and applies the commands they send back.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/framemark/history"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/state"
	"github.com/teranos/framemark/workspace"
)

// Options configure a Server.
type Options struct {
	AllowedOrigins []string
	History        *history.Store // optional, backs /api/history

	// PersistSettings writes mode and copy toggles to the UI config file.
	PersistSettings bool
}

// Server is the hub between one workspace.Service and its clients.
type Server struct {
	svc      *workspace.Service
	opts     Options
	upgrader websocket.Upgrader
	commands map[string]commandFunc
	logger   *zap.SugaredLogger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// stream follows the current store generation
	streamMu   sync.Mutex
	streamStop chan struct{}

	httpServer *http.Server

	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	broadcastDrops atomic.Int64
	state          atomic.Int32
}

// New creates a server for svc. Call Run (or Start) to begin serving.
func New(svc *workspace.Service, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		svc:        svc,
		opts:       opts,
		upgrader:   newUpgrader(opts.AllowedOrigins),
		logger:     logger.ComponentLogger("server"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.commands = s.commandTable()
	svc.OnOpen(s.follow)
	if store := svc.Store(); store != nil {
		s.follow(store)
	}
	return s
}

// handleClientRegister handles a new client connection
func (s *Server) handleClientRegister(client *Client) {
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			logger.FieldClientID, client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}
	s.clients[client] = true
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		logger.FieldClientID, shortID(client.id),
		"total_clients", total,
	)
	client.sendJSON(s.stateMessage(""))
}

// handleClientUnregister handles a client disconnection
func (s *Server) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, client)
	total := len(s.clients)
	client.close()
	s.mu.Unlock()

	s.logger.Infow("Client disconnected",
		logger.FieldClientID, shortID(client.id),
		"total_clients", total,
	)
}

// Run is the hub event loop. It returns when the server stops.
func (s *Server) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Server hub stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		}
	}
}

// clientCount returns the number of registered clients.
func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// currentStore is a shorthand used by handlers.
func (s *Server) currentStore() *state.Store {
	return s.svc.Store()
}
