package am

import "github.com/teranos/framemark/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.CameraTool.TimeoutSeconds < 0 {
		return errors.Newf("camera_tool.timeout_seconds must be >= 0, got %d", c.CameraTool.TimeoutSeconds)
	}
	// 0 = unlimited
	if c.CameraTool.MaxCallsPerSecond < 0 {
		return errors.Newf("camera_tool.max_calls_per_second must be >= 0, got %f", c.CameraTool.MaxCallsPerSecond)
	}

	switch c.Annotation.Mode {
	case "", "mixed", "location":
	default:
		return errors.Newf("annotation.mode must be mixed or location, got %q", c.Annotation.Mode)
	}
	switch c.Annotation.ZoneClassifier {
	case "", "threshold", "zones":
	default:
		return errors.Newf("annotation.zone_classifier must be threshold or zones, got %q", c.Annotation.ZoneClassifier)
	}

	if c.Workspace.DebounceMS < 0 {
		return errors.Newf("workspace.debounce_ms must be >= 0, got %d", c.Workspace.DebounceMS)
	}
	if c.History.MaxRevisions < 0 {
		return errors.Newf("history.max_revisions must be >= 0, got %d", c.History.MaxRevisions)
	}

	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && (*c.Server.Port < 0 || *c.Server.Port > 65535) {
		return errors.Newf("server.port must be in 1-65535, got %d", *c.Server.Port)
	}

	return nil
}
