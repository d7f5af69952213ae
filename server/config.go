package server

import (
	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/settings"
)

// ApplyConfig takes the annotation preferences from a reloaded configuration
// and pushes them to every client. The active tool is left alone. It has the
// ReloadCallback signature so it can be handed to a config watcher.
func (s *Server) ApplyConfig(cfg *am.Config) error {
	st := s.svc.Settings()
	st.SetCopyBox(cfg.Annotation.CopyBox)
	st.SetCopyLocation(cfg.Annotation.CopyLocation)
	// location mode overrides the toggles
	if err := st.SetMode(settings.Mode(cfg.Annotation.Mode)); err != nil {
		return err
	}

	s.logger.Infow("Annotation settings reloaded",
		"mode", cfg.Annotation.Mode,
		"copy_box", cfg.Annotation.CopyBox,
		"copy_location", cfg.Annotation.CopyLocation,
	)
	s.settingsChanged()
	return nil
}
