package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michalzawierta/nanocamera/nanocam"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		list       = flag.Bool("list", false, "list V4L2 devices and exit")
		camType    = flag.String("type", "", "camera type: csi, usb, rtsp or mjpeg")
		device     = flag.Int("device", -1, "CSI sensor id or USB device index")
		source     = flag.String("source", "", "host:port[/path] of an RTSP or MJPEG stream")
		fps        = flag.Int("fps", 0, "capture frame rate")
		enforceFPS = flag.Bool("enforce-fps", false, "keep the latest frame fresh in the background")
		debug      = flag.Bool("debug", false, "return camera errors instead of only recording them")
		record     = flag.Bool("record", false, "CSI only: write JPEG files to the record path")
		move       = flag.Bool("move", false, "move recorded files out of the capture directory")
		mqttOn     = flag.Bool("mqtt", false, "publish camera state and snapshots over MQTT")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *list {
		devices, err := nanocam.ScanDevices(ctx, nanocam.DefaultDevicePattern)
		if err != nil {
			nanocam.ERRORLogger.Fatal(err)
		}
		for _, d := range devices {
			fmt.Println(d)
		}
		return
	}

	cfg, err := nanocam.LoadConfig(*configPath)
	if err != nil {
		nanocam.ERRORLogger.Fatal(err)
	}
	if *camType != "" {
		t, err := nanocam.ParseCameraType(*camType)
		if err != nil {
			nanocam.ERRORLogger.Fatal(err)
		}
		cfg.Camera.Type = t
	}
	if *device >= 0 {
		cfg.Camera.DeviceID = *device
	}
	if *source != "" {
		cfg.Camera.Source = *source
	}
	if *fps > 0 {
		cfg.Camera.FPS = *fps
	}
	cfg.Camera.EnforceFPS = cfg.Camera.EnforceFPS || *enforceFPS
	cfg.Camera.Debug = cfg.Camera.Debug || *debug
	cfg.Camera.Record = cfg.Camera.Record || *record
	cfg.FileMover.Enabled = cfg.FileMover.Enabled || *move
	cfg.MQTT.Enabled = cfg.MQTT.Enabled || *mqttOn
	if err := cfg.Validate(); err != nil {
		nanocam.ERRORLogger.Fatal(err)
	}
	if cfg.LogLevel != "" && !nanocam.SetLogLevel(cfg.LogLevel) {
		nanocam.WARNINGLogger.Printf("Unrecognized log level %q, keeping INFO", cfg.LogLevel)
	}

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		nanocam.ERRORLogger.Fatal(err)
	}
}

func run(ctx context.Context, cfg nanocam.AppConfig) error {
	if cfg.FileMover.Enabled {
		mover := nanocam.NewFileMover(cfg.FileMover)
		if err := mover.Start(ctx); err != nil {
			return err
		}
		defer mover.Close()
	}

	cam, err := nanocam.NewCamera(cfg.Camera)
	if err != nil {
		return err
	}
	defer cam.Release()
	if !cam.IsReady() {
		history, _ := cam.HasError()
		return fmt.Errorf("camera is not ready, error history: %v", history)
	}

	if !cfg.MQTT.Enabled {
		return nanocam.MonitorLoop(ctx, cam, 5*time.Second)
	}

	client, err := nanocam.NewMQTTClient(cfg.MQTT)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topics := nanocam.NewTopics(cfg.MQTT.TopicPrefix)
	imageTriggerChan := make(chan bool, 1)
	if err := nanocam.SetupMQTTSubscriptionCallbacks(client, topics, imageTriggerChan); err != nil {
		return err
	}
	return nanocam.PublishLoop(ctx, cam, client, topics, cfg.MQTT.QoS, cfg.MQTT.StateInterval, imageTriggerChan)
}
