// Package settings holds the annotator's editing preferences: which fields
// copy forward on frame advance, the editing mode, and the active tool.
package settings

import (
	"sync"

	"github.com/teranos/framemark/errors"
)

// Mode selects what the annotator is drawing.
type Mode string

const (
	ModeMixed    Mode = "mixed"    // boxes and locations
	ModeLocation Mode = "location" // locations only
)

// Tool is the active pointer tool.
type Tool string

const (
	ToolPointer     Tool = "pointer"
	ToolBox         Tool = "box"
	ToolLocation    Tool = "location"
	ToolImageOrigin Tool = "imageOrigin"
)

// Values is a plain copy of the settings.
type Values struct {
	CopyBox      bool `json:"copyBox" mapstructure:"copy_box"`
	CopyLocation bool `json:"copyLocation" mapstructure:"copy_location"`
	Mode         Mode `json:"mode" mapstructure:"mode"`
	Tool         Tool `json:"tool" mapstructure:"tool"`
}

// Defaults are what a new workspace starts with.
func Defaults() Values {
	return Values{CopyBox: true, CopyLocation: true, Mode: ModeMixed, Tool: ToolPointer}
}

// CopiesForward reports whether frame advance should propagate anything.
func (v Values) CopiesForward() bool {
	return v.CopyBox || v.CopyLocation || v.Mode == ModeLocation
}

// Settings is safe for concurrent use; frame-change hooks read it while the
// UI writes it.
type Settings struct {
	mu     sync.RWMutex
	values Values
}

// New returns settings initialized from v. An invalid mode or tool falls back to the default.
func New(v Values) *Settings {
	d := Defaults()
	if !validMode(v.Mode) {
		v.Mode = d.Mode
	}
	if !validTool(v.Tool) {
		v.Tool = d.Tool
	}
	s := &Settings{values: v}
	if v.Mode == ModeLocation {
		s.values.Mode = ModeMixed
		_ = s.SetMode(ModeLocation)
	}
	return s
}

// Values returns a copy of the current settings.
func (s *Settings) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// SetMode changes the mode. Entering ModeLocation forces CopyBox off,
// CopyLocation on and the location tool. Leaving it restores nothing.
func (s *Settings) SetMode(m Mode) error {
	if !validMode(m) {
		return errors.NewInvalidRequestError("unknown mode %q", m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if m == s.values.Mode {
		return nil
	}
	if m == ModeLocation {
		s.values.CopyBox = false
		s.values.CopyLocation = true
		s.values.Tool = ToolLocation
	}
	s.values.Mode = m
	return nil
}

// SetCopyBox toggles box propagation.
func (s *Settings) SetCopyBox(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.CopyBox = on
}

// SetCopyLocation toggles location propagation.
func (s *Settings) SetCopyLocation(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.CopyLocation = on
}

// SetTool changes the active tool.
func (s *Settings) SetTool(t Tool) error {
	if !validTool(t) {
		return errors.NewInvalidRequestError("unknown tool %q", t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Tool = t
	return nil
}

func validMode(m Mode) bool {
	return m == ModeMixed || m == ModeLocation
}

func validTool(t Tool) bool {
	switch t {
	case ToolPointer, ToolBox, ToolLocation, ToolImageOrigin:
		return true
	}
	return false
}
