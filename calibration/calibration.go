// Package calibration describes how a camera's image maps onto the room:
// calibration files for the camera tool, the image origin, room size, axis
// orientation, and the zones a room position is classified into.
package calibration

import (
	"regexp"

	"github.com/teranos/framemark/geom"
)

// Room size used when a workspace does not specify one, in millimetres.
const (
	DefaultRoomWidth  = 6000
	DefaultRoomLength = 4000
)

var xmlFile = regexp.MustCompile(`(?i)\.xml$`)

// FlipOrigin mirrors a room axis when set.
type FlipOrigin struct {
	X bool `json:"x"`
	Y bool `json:"y"`
}

// Calibration is the per-workspace camera setup.
type Calibration struct {
	LensFile        string
	PerspectiveFile string
	ImageOrigin     geom.Point
	RoomSize        geom.Point
	Flip            FlipOrigin
	Switch          bool
	ZoneFile        string
	Zones           []Zone
}

// Default returns an uncalibrated setup with the default room size.
func Default() Calibration {
	return Calibration{RoomSize: geom.Pt(DefaultRoomWidth, DefaultRoomLength)}
}

// Calibrated reports whether coordinates can be resolved: both calibration
// files are .xml and the image origin and room size are set.
func (c Calibration) Calibrated() bool {
	return xmlFile.MatchString(c.LensFile) &&
		xmlFile.MatchString(c.PerspectiveFile) &&
		c.ImageOrigin.IsValid() &&
		c.RoomSize.IsValid()
}

// Remap converts a raw camera tool point into room coordinates. Switch is
// applied first and picks which raw axis feeds which room axis; each room
// axis is then mirrored against the room size when its flip is set.
func (c Calibration) Remap(raw geom.Point) (x, y float64) {
	x, y = raw.XY()
	if c.Switch {
		x, y = y, x
	}
	roomX, roomY := c.RoomSize.XY()
	if c.Flip.X {
		x = roomX - x
	}
	if c.Flip.Y {
		y = roomY - y
	}
	return x, y
}
