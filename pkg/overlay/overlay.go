// Package overlay draws tracking annotations onto frames for the
// dashboard camera feed.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/mtdev/go-dogtrack/pkg/tracking"
)

var (
	colLock   = color.RGBA{0, 255, 0, 0}
	colSearch = color.RGBA{0, 165, 255, 0}
	colTrace  = color.RGBA{0, 255, 255, 0}
	colText   = color.RGBA{255, 255, 255, 0}
)

// Draw annotates frame in place with the ball circle, the fading trace,
// and the HUD text block.
func Draw(frame *gocv.Mat, r tracking.TickReport, trace []tracking.TracePoint) {
	if frame.Empty() {
		return
	}

	for _, p := range trace {
		gocv.Circle(frame, image.Pt(int(p.X), int(p.Y)), 2, colTrace, -1)
	}

	if r.HasFix {
		col := colLock
		if r.Completion != tracking.CompletionNone {
			col = colSearch
		}
		center := image.Pt(int(r.X), int(r.Y))
		gocv.Circle(frame, center, r.Radius, col, 2)
		gocv.Circle(frame, center, 3, col, -1)
	}

	y := 22
	for _, line := range r.HUD {
		gocv.PutText(frame, line, image.Pt(8, y), gocv.FontHersheySimplex, 0.5, colText, 1)
		y += 20
	}
}

// EncodeJPEG compresses the frame for websocket delivery. The returned
// slice is owned by the caller.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
