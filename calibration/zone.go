package calibration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
)

// Classifier names used in configuration.
const (
	ClassifierThreshold = "threshold"
	ClassifierZones     = "zones"
)

// Zone is a labelled room rectangle given by its corners in the order
// top-left, top-right, bottom-right, bottom-left.
type Zone struct {
	Label string       `json:"label" toml:"label"`
	Area  []geom.Point `json:"area" toml:"area"`
}

// Contains tests x in [area[0].x, area[2].x) and y in [area[1].y, area[2].y).
func (z Zone) Contains(x, y float64) bool {
	if len(z.Area) < 3 {
		return false
	}
	for _, p := range z.Area[:3] {
		if !p.IsValid() {
			return false
		}
	}
	x0, _ := z.Area[0].XY()
	_, y0 := z.Area[1].XY()
	x1, y1 := z.Area[2].XY()
	return x >= x0 && x < x1 && y >= y0 && y < y1
}

// LoadZones reads a zone file. Files ending in .toml hold [[zone]] tables;
// anything else is a JSON array of zones.
func LoadZones(path string) ([]Zone, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var doc struct {
			Zone []Zone `toml:"zone"`
		}
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return nil, errors.Wrapf(err, "failed to decode zone file %s", path)
		}
		return doc.Zone, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read zone file %s", path)
	}
	var zones []Zone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, errors.Wrapf(err, "failed to decode zone file %s", path)
	}
	return zones, nil
}

// Classifier maps a room position to a zone label.
type Classifier interface {
	Classify(x, y float64) string
}

// ThresholdClassifier is the fixed room layout: first match wins.
//
//	0 <= x <= 1500, 0 <= y <= 1700  A
//	x <= 3600, y <= 1700            C
//	x <= 3600, y <= 4000            B
//	x <= 6000, y <= 4000            D
//	otherwise                       N/A
type ThresholdClassifier struct{}

// Classify implements Classifier.
func (ThresholdClassifier) Classify(x, y float64) string {
	switch {
	case x >= 0 && y >= 0 && x <= 1500 && y <= 1700:
		return "A"
	case x <= 3600 && y <= 1700:
		return "C"
	case x <= 3600 && y <= 4000:
		return "B"
	case x <= 6000 && y <= 4000:
		return "D"
	default:
		return annotation.ZoneNA
	}
}

// ZoneClassifier returns the label of the first zone containing the point.
type ZoneClassifier struct {
	Zones []Zone
}

// Classify implements Classifier.
func (c ZoneClassifier) Classify(x, y float64) string {
	for _, z := range c.Zones {
		if z.Contains(x, y) {
			return z.Label
		}
	}
	return annotation.ZoneNA
}

// NewClassifier picks a classifier by name. "zones" without any loaded zones
// falls back to the thresholds.
func NewClassifier(name string, zones []Zone) (Classifier, error) {
	switch name {
	case "", ClassifierThreshold:
		return ThresholdClassifier{}, nil
	case ClassifierZones:
		if len(zones) == 0 {
			return ThresholdClassifier{}, nil
		}
		return ZoneClassifier{Zones: zones}, nil
	default:
		return nil, errors.NewInvalidRequestError("unknown zone classifier %q", name)
	}
}
