package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/settings"
	"github.com/teranos/framemark/state"
	"github.com/teranos/framemark/workspace"
)

// commandFunc runs one decoded command and returns its result.
type commandFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// typed adapts a handler taking a concrete payload type. An absent payload
// decodes as the zero value.
func typed[T any](fn func(ctx context.Context, p T) (interface{}, error)) commandFunc {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var p T
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, errors.WithHint(
					errors.NewInvalidRequestError("bad payload: %s", err.Error()),
					"check the payload fields for this command type",
				)
			}
		}
		return fn(ctx, p)
	}
}

// withStore adapts a handler that needs an open store.
func (s *Server) withStore(fn func(st *state.Store) (interface{}, error)) commandFunc {
	return func(context.Context, json.RawMessage) (interface{}, error) {
		st := s.currentStore()
		if st == nil {
			return nil, errNoWorkspace
		}
		return fn(st)
	}
}

// commandTable lists every command a client may send.
func (s *Server) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"ping": func(context.Context, json.RawMessage) (interface{}, error) { return "pong", nil },

		// workspace
		"init": typed(func(ctx context.Context, p initPayload) (interface{}, error) {
			err := s.svc.Init(ctx, workspace.Config{Dir: p.Dir, Video: p.Video, Annotation: p.Annotation})
			return nil, err
		}),
		"load": typed(func(_ context.Context, p pathPayload) (interface{}, error) {
			if p.Path == "" {
				return nil, errors.NewInvalidRequestError("path is required")
			}
			return nil, s.svc.LoadAnnotation(p.Path)
		}),
		"save": typed(func(ctx context.Context, p pathPayload) (interface{}, error) {
			if err := s.svc.Save(ctx, p.Path); err != nil {
				return nil, err
			}
			return map[string]string{"path": s.svc.AnnotationFile()}, nil
		}),

		// cursors
		"set_frame": typed(func(ctx context.Context, p framePayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			st.SetCurrentFrame(p.Frame)
			return map[string]int{"frame": st.CurrentFrame()}, nil
		}),
		"next":     s.withStore(func(st *state.Store) (interface{}, error) { st.Next(); return nil, nil }),
		"previous": s.withStore(func(st *state.Store) (interface{}, error) { st.Previous(); return nil, nil }),
		"key": typed(func(ctx context.Context, p keyPayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			switch p.Key {
			case "x":
				st.Next()
			case "z":
				st.Previous()
			default:
				// unbound keys are ignored
			}
			return nil, nil
		}),
		"set_person": typed(func(ctx context.Context, p personPayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			if p.Person == nil {
				return nil, errors.NewInvalidRequestError("person is required")
			}
			st.SetCurrentPerson(*p.Person)
			idx, _ := st.CurrentPerson()
			return map[string]int{"person": idx}, nil
		}),
		"redrawn": s.withStore(func(st *state.Store) (interface{}, error) {
			st.SetRedrawVisuals(false)
			return nil, nil
		}),

		// people
		"add_person": s.withStore(func(st *state.Store) (interface{}, error) {
			idx, err := st.AddPerson()
			if err != nil {
				return nil, err
			}
			return map[string]int{"person": idx}, nil
		}),
		"remove_person": typed(func(ctx context.Context, p personPayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			idx, ok := st.CurrentPerson()
			if p.Person != nil {
				idx, ok = *p.Person, true
			}
			if !ok {
				return nil, errors.NewNotFoundError("no person selected")
			}
			return nil, st.RemovePerson(idx)
		}),
		"set_box": typed(func(_ context.Context, p boxPayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			return nil, st.SetBox(p.Box)
		}),
		"set_location": typed(func(_ context.Context, p pointPayload) (interface{}, error) {
			return nil, s.svc.SetVirtualLocation(p.Point)
		}),
		"set_keyframe": typed(func(_ context.Context, p keyframePayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			return nil, st.SetKeyframe(p.Keyframe)
		}),
		"set_id": typed(func(_ context.Context, p idPayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			return nil, st.SetPersonID(p.ID)
		}),
		"set_obscured": typed(func(_ context.Context, p obscuredPayload) (interface{}, error) {
			st := s.currentStore()
			if st == nil {
				return nil, errNoWorkspace
			}
			return nil, st.SetObscured(p.Obscured)
		}),

		// propagation and resolution
		"interpolate": func(context.Context, json.RawMessage) (interface{}, error) {
			n, err := s.svc.InterpolateToCurrent()
			if err != nil {
				return nil, err
			}
			return map[string]int{"written": n}, nil
		},
		"auto_coordinate": func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
			return s.svc.AutoCoordinateCurrent(ctx)
		},
		"set_origin": typed(func(_ context.Context, p pointPayload) (interface{}, error) {
			if !p.Point.IsValid() {
				return nil, errors.NewInvalidRequestError("origin needs x and y")
			}
			return nil, s.svc.SetImageOrigin(p.Point)
		}),

		// settings
		"set_mode": typed(func(_ context.Context, p modePayload) (interface{}, error) {
			if err := s.svc.Settings().SetMode(p.Mode); err != nil {
				return nil, err
			}
			s.persist("mode", func() error { return am.UpdateAnnotationMode(string(p.Mode)) })
			return s.settingsChanged(), nil
		}),
		"set_tool": typed(func(_ context.Context, p toolPayload) (interface{}, error) {
			if err := s.svc.Settings().SetTool(p.Tool); err != nil {
				return nil, err
			}
			return s.settingsChanged(), nil
		}),
		"set_copy_box": typed(func(_ context.Context, p togglePayload) (interface{}, error) {
			s.svc.Settings().SetCopyBox(p.Enabled)
			s.persist("copy_box", func() error { return am.UpdateCopyBox(p.Enabled) })
			return s.settingsChanged(), nil
		}),
		"set_copy_location": typed(func(_ context.Context, p togglePayload) (interface{}, error) {
			s.svc.Settings().SetCopyLocation(p.Enabled)
			s.persist("copy_location", func() error { return am.UpdateCopyLocation(p.Enabled) })
			return s.settingsChanged(), nil
		}),
	}
}

// dispatch runs env and builds its reply. Commands that change settings or
// calibration push a fresh state to every client; store mutations reach
// clients through the store subscription.
func (s *Server) dispatch(env *Envelope, clientID string) *Reply {
	reply := &Reply{Type: "reply", ID: env.ID, Cmd: env.Type, status: http.StatusOK}

	fn, ok := s.commands[env.Type]
	if !ok {
		reply.fail(errors.NewInvalidRequestError("unknown command %q", env.Type))
		return reply
	}

	ctx, cancel := context.WithTimeout(s.ctx, CommandTimeout)
	defer cancel()

	start := time.Now()
	result, err := fn(ctx, env.Payload)
	log := s.logger.With(
		logger.FieldCommand, env.Type,
		logger.FieldClientID, shortID(clientID),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	if err != nil {
		reply.fail(err)
		if reply.Error.Code == "internal" {
			log.Warnw("Command failed", logger.FieldError, err.Error())
		} else {
			log.Debugw("Command rejected", logger.FieldError, err.Error())
		}
		return reply
	}

	log.Debugw("Command applied")
	reply.OK = true
	reply.Result = result

	switch env.Type {
	case "set_origin", "init", "load", "save":
		s.broadcastMessage(s.stateMessage(""))
	}
	return reply
}

func (r *Reply) fail(err error) {
	r.OK = false
	r.Error = newErrorBody(err)
	_, r.status = errorCode(err)
}

// settingsChanged pushes the new settings and returns them.
func (s *Server) settingsChanged() settings.Values {
	s.broadcastMessage(s.stateMessage(""))
	return s.svc.Settings().Values()
}

// persist writes a UI setting if enabled. Failures are logged only.
func (s *Server) persist(key string, fn func() error) {
	if !s.opts.PersistSettings {
		return
	}
	if err := fn(); err != nil {
		s.logger.Warnw("Setting not persisted", "key", key, logger.FieldError, err.Error())
	}
}
