package server

import (
	"encoding/json"
	"time"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/settings"
	"github.com/teranos/framemark/state"
)

const (
	// MaxClients is the maximum number of concurrent WebSocket clients
	MaxClients = 16
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 256
	// ShutdownTimeout is how long Stop waits for goroutines
	ShutdownTimeout = 10 * time.Second
	// CommandTimeout bounds commands that call the camera tool
	CommandTimeout = 60 * time.Second
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// Envelope is a client command. Type selects the payload shape; ID, when
// set, is echoed back in the Reply.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply answers one Envelope.
type Reply struct {
	Type   string      `json:"type"` // always "reply"
	ID     string      `json:"id,omitempty"`
	Cmd    string      `json:"cmd"`
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`

	status int // HTTP status for HandleCommand
}

// ErrorBody is how errors travel to clients and HTTP callers.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// StateMessage is pushed to every client whenever the store changes.
// Kind is empty for the initial push to a new client.
type StateMessage struct {
	Type  string          `json:"type"` // always "state"
	Kind  state.EventKind `json:"kind,omitempty"`
	State *StateView      `json:"state"`
}

// StateView is what a renderer needs to draw the current frame.
type StateView struct {
	Open        bool                 `json:"open"`
	Session     string               `json:"session,omitempty"`
	Frame       int                  `json:"frame"`
	Person      int                  `json:"person"`
	ImagesCount int                  `json:"imagesCount"`
	Image       string               `json:"image,omitempty"`
	Redraw      bool                 `json:"redraw"`
	Current     *annotation.FrameDoc `json:"current,omitempty"`
	Settings    settings.Values      `json:"settings"`
	Calibrated  bool                 `json:"calibrated"`
	Annotation  string               `json:"annotation,omitempty"`
}

// HelloMessage is the first message on every connection.
type HelloMessage struct {
	Type     string `json:"type"` // always "hello"
	ClientID string `json:"client_id"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
}

// Command payloads.

type framePayload struct {
	Frame int `json:"frame"`
}

type keyPayload struct {
	Key string `json:"key"`
}

type personPayload struct {
	Person *int `json:"person"`
}

type boxPayload struct {
	Box geom.BoundingBox `json:"box"`
}

type pointPayload struct {
	Point geom.Point `json:"point"`
}

type keyframePayload struct {
	Keyframe bool `json:"keyframe"`
}

type idPayload struct {
	ID *int `json:"id"`
}

type obscuredPayload struct {
	Obscured bool `json:"obscured"`
}

type modePayload struct {
	Mode settings.Mode `json:"mode"`
}

type toolPayload struct {
	Tool settings.Tool `json:"tool"`
}

type togglePayload struct {
	Enabled bool `json:"enabled"`
}

type pathPayload struct {
	Path string `json:"path"`
}

type initPayload struct {
	Dir        string `json:"dir"`
	Video      string `json:"video"`
	Annotation string `json:"annotation"`
}
