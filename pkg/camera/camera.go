// Package camera provides frame sources for the tracking loop: the dog's
// TCP video stream, or a local webcam for desk testing. Both hand frames
// to the caller through the same Source interface.
package camera

import "gocv.io/x/gocv"

// Source produces BGR frames into a caller-owned Mat.
type Source interface {
	// Read fills dst with the next frame. Blocks until a frame arrives
	// or the source fails.
	Read(dst *gocv.Mat) error
	Close() error
}

// Config holds webcam capture settings.
type Config struct {
	DeviceID int `json:"device_id"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	FPS      int `json:"fps"`
}

// DefaultConfig matches the dog camera's native stream.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    640,
		Height:   480,
		FPS:      30,
	}
}
