// Package config provides configuration helpers for go-dogtrack commands.
package config

import (
	"fmt"
	"os"
)

// Default robot configuration.
const (
	DefaultCommandPort = "5001"
	DefaultVideoPort   = "8001"
)

// DogIP returns the robot IP from DOG_IP env var.
// Falls back to the provided default if not set.
func DogIP(defaultIP string) string {
	if ip := os.Getenv("DOG_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// DogIPRequired returns the robot IP from DOG_IP env var.
// Exits if not set.
func DogIPRequired() string {
	ip := os.Getenv("DOG_IP")
	if ip == "" {
		fmt.Fprintln(os.Stderr, "Error: DOG_IP environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: DOG_IP=192.168.0.32 go run ./cmd/...")
		os.Exit(1)
	}
	return ip
}

// CommandAddr returns the robot command/telemetry TCP address.
func CommandAddr(dogIP string) string {
	return fmt.Sprintf("%s:%s", dogIP, DefaultCommandPort)
}

// VideoAddr returns the robot MJPEG video TCP address.
func VideoAddr(dogIP string) string {
	return fmt.Sprintf("%s:%s", dogIP, DefaultVideoPort)
}
