// Package detect locates a colored ball in camera frames.
//
// The primary implementation is ColorGate, a geometric detector built on
// dual color-space gating plus contour scoring. Any detector producing the
// same Ball shape (for example a learned-model detector running out of
// process) can substitute for it behind the Detector interface.
package detect

import "gocv.io/x/gocv"

// Ball is one detected candidate circle in frame coordinates.
// Produced fresh each frame, never mutated.
type Ball struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	R           int     `json:"r"`
	Area        float64 `json:"area"`
	Circularity float64 `json:"circularity"`
}

// Detector produces at most one ball per frame.
// A nil ball with nil error means "no ball this frame" and is the normal,
// frequent outcome; errors are reserved for genuinely broken inputs.
type Detector interface {
	Detect(frame gocv.Mat) (*Ball, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(frame gocv.Mat) (*Ball, error)

// Detect calls f.
func (f DetectorFunc) Detect(frame gocv.Mat) (*Ball, error) {
	return f(frame)
}

// SelectLargest picks the maximum-area candidate from a multi-candidate
// detector (external ML detectors return several boxes; apparent size is
// the designed tie-break for which blob is the ball). Returns nil for an
// empty slice.
func SelectLargest(balls []Ball) *Ball {
	if len(balls) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(balls); i++ {
		if balls[i].Area > balls[best].Area {
			best = i
		}
	}
	b := balls[best]
	return &b
}
