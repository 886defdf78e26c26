// dogtrack drives the quadruped to a red/orange ball: per-frame color
// detection, head and body tracking, lost-ball search, and a completion
// sequence when the ball is reached. A small web dashboard exposes live
// state, the annotated camera view, and runtime tuning.
//
// Usage:
//
//	DOG_IP=192.168.0.32 dogtrack
//	dogtrack -ip 192.168.0.32 -web 8080 -config calib.json
//	dogtrack -webcam            # desk test, no robot
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/mtdev/go-dogtrack/internal/config"
	"github.com/mtdev/go-dogtrack/internal/log"
	"github.com/mtdev/go-dogtrack/pkg/camera"
	"github.com/mtdev/go-dogtrack/pkg/debug"
	"github.com/mtdev/go-dogtrack/pkg/detect"
	"github.com/mtdev/go-dogtrack/pkg/overlay"
	"github.com/mtdev/go-dogtrack/pkg/robot"
	"github.com/mtdev/go-dogtrack/pkg/tracking"
	"github.com/mtdev/go-dogtrack/pkg/web"
)

const telemetryInterval = time.Second

func main() {
	var (
		ip         = flag.String("ip", config.DogIP(""), "robot IP (or DOG_IP env)")
		webPort    = flag.String("web", "8080", "dashboard port, empty to disable")
		configPath = flag.String("config", "", "tracking calibration JSON")
		useWebcam  = flag.Bool("webcam", false, "use local webcam and a no-op robot")
		device     = flag.Int("device", 0, "webcam device id")
		verbose    = flag.Bool("v", false, "verbose tracking/detection logs")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
		debug.Enabled = true
		debug.Tracking = true
		debug.Detect = true
	}
	log.Init(level)

	cfg := tracking.DefaultConfig()
	if *configPath != "" {
		loaded, err := tracking.LoadFile(*configPath)
		if err != nil {
			log.Error("config load failed", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
		log.Info("calibration loaded", "path", *configPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		act    tracking.Actuator
		source camera.Source
		client *robot.Client
	)
	if *useWebcam {
		cam, err := camera.OpenWebcam(camera.Config{DeviceID: *device, Width: 640, Height: 480, FPS: 30})
		if err != nil {
			log.Error("webcam open failed", "error", err)
			os.Exit(1)
		}
		source = cam
		act = nopActuator{}
	} else {
		if *ip == "" {
			*ip = config.DogIPRequired()
		}
		c, err := robot.Dial(config.CommandAddr(*ip))
		if err != nil {
			log.Error("robot connect failed", "error", err)
			os.Exit(1)
		}
		client = c
		act = c

		stream, err := camera.DialStream(config.VideoAddr(*ip))
		if err != nil {
			client.Close()
			log.Error("video connect failed", "error", err)
			os.Exit(1)
		}
		source = stream
	}
	defer source.Close()

	// Latest telemetry sample, shared between the read loop and the tick
	// loop.
	var (
		teleMu sync.Mutex
		tele   tracking.Sample
	)
	if client != nil {
		client.OnTelemetry(func(s tracking.Sample) {
			teleMu.Lock()
			tele = s
			teleMu.Unlock()
		})
		client.OnPower(func(v float64) {
			log.Debug("battery", "volts", v)
		})
		go client.Poll(ctx, telemetryInterval)
		defer client.Close()
	}

	detector := detect.NewColorGate(detect.DefaultGateConfig())

	session := tracking.NewSession(detector, act, cfg)
	log.Info("session started", "id", session.ID(), "webcam", *useWebcam)

	var server *web.Server
	if *webPort != "" {
		server = web.NewServer(*webPort, session)
		server.OnDetectReport = detector.Report
		server.StartAsync()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	runLoop(ctx, session, source, server, func() tracking.Sample {
		teleMu.Lock()
		defer teleMu.Unlock()
		return tele
	})

	// Leave the robot stopped and relaxed regardless of loop state.
	act.Move(tracking.Stop, tracking.MinSpeed)
	act.Relax()
	if server != nil {
		server.Shutdown()
	}
}

// runLoop ticks the session once per received frame until ctx is done.
func runLoop(ctx context.Context, session *tracking.Session, source camera.Source, server *web.Server, latest func() tracking.Sample) {
	frame := gocv.NewMat()
	defer frame.Close()

	failures := 0
	for ctx.Err() == nil {
		if err := source.Read(&frame); err != nil {
			if err == camera.ErrBadFrame {
				continue
			}
			failures++
			log.Warn("frame read failed", "error", err, "failures", failures)
			if failures >= 5 {
				return
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}
		failures = 0

		report := session.Tick(frame, latest(), time.Now())

		if server != nil {
			server.PublishReport(report)
			overlay.Draw(&frame, report, session.Trace())
			if jpg, err := overlay.EncodeJPEG(frame); err == nil {
				server.PublishFrame(jpg)
			}
		}
	}
}

// nopActuator lets the full pipeline run against a webcam with no robot
// attached.
type nopActuator struct{}

func (nopActuator) Move(cmd tracking.Command, speed int) error {
	debug.TrackLog("nop: %s speed=%d\n", cmd, speed)
	return nil
}
func (nopActuator) Relax() error                { return nil }
func (nopActuator) PowerOff() error             { return nil }
func (nopActuator) SetHeadAngle(float64) error  { return nil }
func (nopActuator) Beep(int, time.Duration, time.Duration) error { return nil }
func (nopActuator) FlashLED(int, time.Duration, time.Duration, uint8, uint8, uint8) error {
	return nil
}
