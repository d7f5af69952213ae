package annotation

import (
	"math"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
)

// FrameScore is the IoU of the first person's box in one frame of two files.
type FrameScore struct {
	Frame int     `json:"frame"` // 1-based
	IoU   float64 `json:"iou"`
}

// IoUReport summarizes how closely target's boxes follow reference's.
type IoUReport struct {
	Scores  []FrameScore `json:"scores"`
	Average float64      `json:"average"`
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
}

// CompareIoU scores reference against target frame by frame. Frames are
// paired by position and only the first person of each is compared; a frame
// is skipped unless both sides have a valid box there.
func CompareIoU(reference, target *Video) (*IoUReport, error) {
	report := &IoUReport{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0

	for i, rf := range reference.Frames {
		tf := target.Frame(i)
		if rf == nil || tf == nil {
			continue
		}
		a, b := firstBox(rf), firstBox(tf)
		if !a.IsValid() || !b.IsValid() {
			continue
		}
		score := geom.IoU(a, b)
		report.Scores = append(report.Scores, FrameScore{Frame: i + 1, IoU: score})
		sum += score
		report.Min = math.Min(report.Min, score)
		report.Max = math.Max(report.Max, score)
	}

	if len(report.Scores) == 0 {
		return nil, errors.WithHint(
			errors.NewNotFoundError("no frame has a box in both files"),
			"IoU compares the first person of each frame",
		)
	}
	report.Average = sum / float64(len(report.Scores))
	return report, nil
}

func firstBox(f *Frame) geom.BoundingBox {
	if p := f.Person(0); p != nil {
		return p.Box
	}
	return geom.EmptyBox()
}
