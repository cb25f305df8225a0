package nanocam

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// FrameSource is a camera that can be read and reported on.
type FrameSource interface {
	StateSource
	Read() (gocv.Mat, error)
}

// PublishLoop publishes the camera state every interval and a JPEG frame
// plus its metadata on every trigger, until ctx is done.
func PublishLoop(ctx context.Context, cam FrameSource, pub Publisher, topics Topics, qos byte, interval time.Duration, trigger <-chan bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := PublishState(pub, topics.State, qos, cam); err != nil {
				WARNINGLogger.Printf("Publishing state: %v", err)
			}
		case <-trigger:
			if err := publishSnapshot(cam, pub, topics, qos); err != nil {
				WARNINGLogger.Printf("Publishing snapshot: %v", err)
			}
		}
	}
}

func publishSnapshot(cam FrameSource, pub Publisher, topics Topics, qos byte) error {
	frame, err := cam.Read()
	if err != nil {
		frame.Close()
		return err
	}
	defer frame.Close()
	if frame.Empty() {
		return ErrRead
	}

	if err := PublishImage(pub, topics.Image, qos, frame); err != nil {
		return err
	}
	return publishJsonMsg(pub, topics.Snapshot, qos, CameraSnapshotMessage{
		Timestamp: time.Now().UnixMilli(),
		Width:     frame.Cols(),
		Height:    frame.Rows(),
	})
}

// MonitorLoop reads frames continuously and logs the achieved read rate
// every logEvery, until ctx is done or the camera stops being ready.
// With EnforceFPS a read returns the latest stored frame without waiting
// for a new one, so the read rate is not the camera frame rate then.
func MonitorLoop(ctx context.Context, cam FrameSource, logEvery time.Duration) error {
	t0 := time.Now()
	previousLogTs := t0
	reads := 0

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !cam.IsReady() {
			history, _ := cam.HasError()
			WARNINGLogger.Printf("Camera is not ready, error history: %v", history)
			return ErrRead
		}

		frame, err := cam.Read()
		empty := frame.Empty()
		frame.Close()
		if err != nil {
			return err
		}
		if empty {
			return ErrRead
		}
		reads++

		if i == 0 {
			INFOLogger.Printf("Time until first frame arrived: %.3f ms", float64(time.Since(t0).Microseconds())/1e3)
		}
		if elapsed := time.Since(previousLogTs); elapsed >= logEvery {
			INFOLogger.Printf("Reads: %d, %.1f reads/s", i+1, float64(reads)/elapsed.Seconds())
			previousLogTs = time.Now()
			reads = 0
		}
	}
}
