package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Webcam captures from a local V4L2/AVFoundation device. Used for desk
// testing the detector and session without the robot.
type Webcam struct {
	cap *gocv.VideoCapture
}

// OpenWebcam opens the device and applies the requested capture settings.
func OpenWebcam(cfg Config) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceID, err)
	}
	if cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		cap.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}
	return &Webcam{cap: cap}, nil
}

// Read grabs the next frame.
func (w *Webcam) Read(dst *gocv.Mat) error {
	if ok := w.cap.Read(dst); !ok {
		return fmt.Errorf("camera read failed")
	}
	if dst.Empty() {
		return ErrBadFrame
	}
	return nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	return w.cap.Close()
}
