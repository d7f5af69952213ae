package server

import (
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/state"
)

// follow switches the state stream to store. It is registered with the
// workspace so every new store generation is picked up.
func (s *Server) follow(store *state.Store) {
	events := store.Subscribe()
	stop := make(chan struct{})

	s.streamMu.Lock()
	if s.streamStop != nil {
		close(s.streamStop)
	}
	s.streamStop = stop
	s.streamMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer store.Unsubscribe(events)
		s.streamLoop(events, stop)
	}()

	s.logger.Debugw("Following store", logger.FieldSession, store.Session())
	s.broadcastMessage(s.stateMessage(""))
}

// streamLoop pushes a state message per burst of store events. Events that
// queued up while one message was built are folded into the next.
func (s *Server) streamLoop(events chan state.Event, stop chan struct{}) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-stop:
			return
		case ev := <-events:
			kind := ev.Kind
		drain:
			for {
				select {
				case next := <-events:
					kind = next.Kind
				default:
					break drain
				}
			}
			s.broadcastMessage(s.stateMessage(kind))
		}
	}
}

// stateMessage snapshots the current workspace.
func (s *Server) stateMessage(kind state.EventKind) *StateMessage {
	return &StateMessage{Type: "state", Kind: kind, State: s.stateView()}
}

// stateView is the renderer's view of the current workspace.
func (s *Server) stateView() *StateView {
	view := &StateView{
		Person:     -1,
		Settings:   s.svc.Settings().Values(),
		Calibrated: s.svc.Calibration().Calibrated(),
		Annotation: s.svc.AnnotationFile(),
	}
	store := s.currentStore()
	if store == nil {
		return view
	}
	snap := store.Snapshot()
	view.Open = true
	view.Session = snap.Session
	view.Frame = snap.Frame
	view.Person = snap.Person
	view.ImagesCount = snap.ImagesCount
	view.Image = snap.Image
	view.Redraw = snap.Redraw
	if snap.Current != nil {
		view.Current = snap.Current.ToDoc()
	}
	return view
}

// broadcastMessage sends msg to every client without blocking.
// Returns the number of clients that accepted it.
func (s *Server) broadcastMessage(msg interface{}) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for client := range s.clients {
		if client.trySend(msg) {
			sent++
		} else {
			s.broadcastDrops.Add(1)
		}
	}
	return sent
}
