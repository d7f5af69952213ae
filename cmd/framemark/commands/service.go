package commands

import (
	"time"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/cameratool"
	"github.com/teranos/framemark/history"
	"github.com/teranos/framemark/settings"
	"github.com/teranos/framemark/workspace"
)

// newTool builds the camera tool client from camera_tool.*.
func newTool(cfg *am.Config) (*cameratool.Client, error) {
	return cameratool.New(cfg.CameraTool.Path, time.Duration(cfg.CameraTool.TimeoutSeconds)*time.Second)
}

// newService builds a workspace service from the loaded configuration.
// hist may be nil.
func newService(cfg *am.Config, hist *history.Store) (*workspace.Service, error) {
	tool, err := newTool(cfg)
	if err != nil {
		return nil, err
	}

	values := settings.Defaults()
	values.CopyBox = cfg.Annotation.CopyBox
	values.CopyLocation = cfg.Annotation.CopyLocation
	values.Mode = settings.Mode(cfg.Annotation.Mode)

	return workspace.New(workspace.Options{
		Tool:              tool,
		Settings:          values,
		ZoneClassifier:    cfg.Annotation.ZoneClassifier,
		MaxCallsPerSecond: cfg.CameraTool.MaxCallsPerSecond,
		History:           hist,
		WatchImages:       cfg.Workspace.WatchImages,
		Debounce:          time.Duration(cfg.Workspace.DebounceMS) * time.Millisecond,
		Autosave:          cfg.Workspace.Autosave,
	})
}
