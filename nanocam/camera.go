package nanocam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// VideoSource is the capture handle a Camera reads from.
// *gocv.VideoCapture satisfies it.
type VideoSource interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// OpenFunc opens a capture handle for a pipeline descriptor.
type OpenFunc func(pipeline string) (VideoSource, error)

// OpenGStreamer opens pipeline with OpenCV's GStreamer backend.
func OpenGStreamer(pipeline string) (VideoSource, error) {
	vc, err := gocv.VideoCaptureFileWithAPI(pipeline, gocv.VideoCaptureGstreamer)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, err
	}
	return vc, nil
}

type Option func(*Camera)

// WithOpenFunc replaces the function used to open the capture handle.
func WithOpenFunc(fn OpenFunc) Option {
	return func(c *Camera) {
		c.openFn = fn
	}
}

// Camera wraps a capture handle configured from a Config.
//
// Failures never panic: they mark the camera not ready and append a code to
// the error history. Errors are only returned to the caller when
// Config.Debug is set.
type Camera struct {
	cfg      Config
	pipeline string
	openFn   OpenFunc

	// readMu serialises reads on source between the refresh loop and
	// direct reads.
	readMu sync.Mutex
	source VideoSource

	mu       sync.Mutex
	ready    bool
	errs     []ErrorCode
	frame    gocv.Mat
	hasFrame bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCamera opens the camera described by cfg and starts the refresh loop
// when cfg.EnforceFPS is set. The returned Camera is usable even when
// opening failed; check IsReady.
func NewCamera(cfg Config, opts ...Option) (*Camera, error) {
	c := &Camera{
		cfg:      cfg,
		pipeline: Pipeline(cfg),
		openFn:   OpenGStreamer,
		errs:     []ErrorCode{ErrCodeNone},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Open(); err != nil {
		return c, err
	}
	if cfg.EnforceFPS {
		c.Start()
	}
	return c, nil
}

func (c *Camera) Config() Config {
	return c.cfg
}

// Pipeline returns the descriptor the camera was opened with.
func (c *Camera) Pipeline() string {
	return c.pipeline
}

// Open opens the capture handle. A previously opened handle is closed first.
func (c *Camera) Open() (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(ErrCodeUnknown)
			ERRORLogger.Printf("Unknown error opening %s camera: %v", c.cfg.Type, r)
			err = c.debugErr(&CaptureError{
				Code: ErrCodeUnknown,
				Type: c.cfg.Type,
				Err:  fmt.Errorf("%w: %v", ErrUnknown, r),
			})
		}
	}()

	DEBUGLogger.Printf("Opening %s camera with pipeline: %s", c.cfg.Type, c.pipeline)
	src, err := c.openFn(c.pipeline)
	if err == nil && !src.IsOpened() {
		src.Close()
		err = errors.New("capture is not opened")
	}
	if err != nil {
		c.fail(ErrCodeOpen)
		ERRORLogger.Printf("Could not initialize %s camera: %v", c.cfg.Type, err)
		return c.debugErr(&CaptureError{
			Code: ErrCodeOpen,
			Type: c.cfg.Type,
			Err:  fmt.Errorf("%w: %v", ErrOpen, err),
		})
	}

	c.readMu.Lock()
	previous := c.source
	c.source = src
	c.readMu.Unlock()
	if previous != nil {
		previous.Close()
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	INFOLogger.Printf("Opened %s camera %dx%d@%d", c.cfg.Type, c.cfg.Width, c.cfg.Height, c.cfg.FPS)
	return nil
}

// Start launches the refresh loop. It is a no-op while a loop is running.
func (c *Camera) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		select {
		case <-c.done:
		default:
			return
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.refresh(ctx, c.done)
}

// refresh keeps the latest frame slot filled until the camera stops being
// ready, a read fails or ctx is cancelled.
func (c *Camera) refresh(ctx context.Context, done chan struct{}) {
	defer close(done)

	select {
	case <-time.After(c.cfg.StartupDelay):
	case <-ctx.Done():
		return
	}

	for c.IsReady() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m, err := c.read()
		if err != nil {
			m.Close()
			c.fail(ErrCodeThreadRead)
			ERRORLogger.Printf("Thread error: %v", err)
			return
		}
		c.store(m)
	}
	DEBUGLogger.Println("Refresh loop stopped")
}

func (c *Camera) store(m gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasFrame {
		c.frame.Close()
	}
	c.frame = m
	c.hasFrame = true
}

func (c *Camera) read() (gocv.Mat, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	m := gocv.NewMat()
	if c.source == nil {
		return m, fmt.Errorf("%w: camera is not open", ErrRead)
	}
	if !c.source.Read(&m) {
		return m, ErrRead
	}
	return m, nil
}

// Read returns a frame owned by the caller, who must Close it.
//
// With EnforceFPS the most recent frame of the refresh loop is returned, or
// a direct blocking read when the loop has not produced one yet. On failure
// the returned Mat is empty.
func (c *Camera) Read() (gocv.Mat, error) {
	if c.cfg.Debug {
		if history, failed := c.HasError(); failed {
			return gocv.NewMat(), &CaptureError{
				Code:    history[len(history)-1],
				Type:    c.cfg.Type,
				History: history,
				Err:     ErrHistory,
			}
		}
	}

	if c.cfg.EnforceFPS {
		c.mu.Lock()
		if c.hasFrame {
			m := c.frame.Clone()
			c.mu.Unlock()
			return m, nil
		}
		c.mu.Unlock()
	}

	m, err := c.read()
	if err != nil {
		c.appendError(ErrCodeRead)
		WARNINGLogger.Printf("Could not read image from %s camera: %v", c.cfg.Type, err)
		return m, c.debugErr(&CaptureError{Code: ErrCodeRead, Type: c.cfg.Type, Err: err})
	}
	return m, nil
}

// Release stops the refresh loop, closes the capture handle and frees the
// latest frame. The camera is not ready afterwards.
func (c *Camera) Release() error {
	c.mu.Lock()
	c.ready = false
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.readMu.Lock()
	src := c.source
	c.source = nil
	c.readMu.Unlock()

	c.mu.Lock()
	if c.hasFrame {
		c.frame.Close()
		c.hasFrame = false
	}
	c.mu.Unlock()

	if src == nil {
		return nil
	}
	if err := src.Close(); err != nil {
		c.appendError(ErrCodeRelease)
		ERRORLogger.Printf("Could not release %s camera: %v", c.cfg.Type, err)
		return c.debugErr(&CaptureError{
			Code: ErrCodeRelease,
			Type: c.cfg.Type,
			Err:  fmt.Errorf("%w: %v", ErrRelease, err),
		})
	}
	INFOLogger.Printf("Released %s camera", c.cfg.Type)
	return nil
}

func (c *Camera) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// HasError returns a copy of the error history and whether its current
// (last) code is an error.
func (c *Camera) HasError() ([]ErrorCode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]ErrorCode, len(c.errs))
	copy(history, c.errs)
	return history, history[len(history)-1] != ErrCodeNone
}

func (c *Camera) State() CameraState {
	if c.IsReady() {
		return StateReady
	}
	if _, failed := c.HasError(); failed {
		return StateError
	}
	return StateClosed
}

func (c *Camera) appendError(code ErrorCode) {
	c.mu.Lock()
	c.errs = append(c.errs, code)
	c.mu.Unlock()
}

// fail records code and marks the camera not ready.
func (c *Camera) fail(code ErrorCode) {
	c.mu.Lock()
	c.errs = append(c.errs, code)
	c.ready = false
	c.mu.Unlock()
}

func (c *Camera) debugErr(err *CaptureError) error {
	if c.cfg.Debug {
		return err
	}
	return nil
}
