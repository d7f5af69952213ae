package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
)

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Start runs the hub and serves HTTP on port (or the next free one) until
// Stop is called. ready, if non-nil, receives the bound address.
func (s *Server) Start(port int, ready func(addr string)) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()

	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}

	addr := fmt.Sprintf("localhost:%d", actualPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infow("Server ready",
		logger.FieldAddress, "http://"+addr,
		logger.FieldPort, actualPort,
	)
	if ready != nil {
		ready(addr)
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "serve on %s", addr)
	}
	return nil
}

// Stop closes every client, stops the stream and waits for goroutines.
func (s *Server) Stop() error {
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warnw("HTTP shutdown", logger.FieldError, err.Error())
		}
		cancel()
	}

	// close connections before cancelling so the pumps exit cleanly
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
		delete(s.clients, client)
	}
	s.mu.Unlock()
	for _, client := range clients {
		client.conn.Close()
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Infow("All goroutines stopped cleanly")
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Goroutine shutdown timed out", "timeout", ShutdownTimeout)
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete",
		"broadcast_drops", s.broadcastDrops.Load(),
	)
	return nil
}
