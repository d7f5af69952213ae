package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/version"
)

// HandleWebSocket upgrades the connection and starts the client pumps.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.getState() != ServerStateRunning {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed",
			logger.FieldError, err.Error(),
			"origin", r.Header.Get("Origin"),
		)
		return
	}

	client := newClient(s, conn, uuid.New().String())

	// hello goes out before writePump starts, so this write is not concurrent
	info := version.Get()
	if err := conn.WriteJSON(&HelloMessage{
		Type:     "hello",
		ClientID: client.id,
		Version:  info.Version,
		Commit:   info.Short(),
	}); err != nil {
		s.logger.Debugw("Failed to send hello", logger.FieldClientID, client.id, logger.FieldError, err.Error())
		conn.Close()
		return
	}

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		conn.Close()
		return
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
}

// HandleHealth reports liveness and what is open.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	health := map[string]interface{}{
		"status":      "ok",
		"version":     info.Version,
		"commit":      info.CommitHash,
		"clients":     s.clientCount(),
		"initialised": s.svc.Initialised(),
	}
	if st := s.currentStore(); st != nil {
		health["session"] = st.Session()
	}
	_ = writeJSON(w, http.StatusOK, health)
}

// HandleState serves the same view the stream pushes.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	_ = writeJSON(w, http.StatusOK, s.stateView())
}

// HandleCommand runs one command envelope posted as JSON.
func (s *Server) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var env Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&env); err != nil {
		writeError(w, s.logger, errors.NewInvalidRequestError("invalid request body: %s", err.Error()))
		return
	}

	reply := s.dispatch(&env, "http")
	_ = writeJSON(w, reply.status, reply)
}

// HandleHistory lists saved revisions of the open annotation file.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.opts.History == nil {
		writeError(w, s.logger, errors.WithHint(
			errors.NewNotFoundError("history is disabled"),
			"set history.enabled = true in am.toml",
		))
		return
	}
	path := r.URL.Query().Get("file")
	if path == "" {
		path = s.svc.AnnotationFile()
	}
	if path == "" {
		writeError(w, s.logger, errors.NewInvalidRequestError("no annotation file open; pass ?file="))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, s.logger, errors.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	revs, err := s.opts.History.List(r.Context(), path, limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]interface{}{"file": path, "revisions": revs})
}

// HandleConfig shows every setting with the source it came from.
func (s *Server) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	settings, err := am.Introspect()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}
