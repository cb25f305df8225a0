package nanocam

import (
	"errors"
	"fmt"
)

var (
	ErrOpen       = errors.New("could not initialize camera")
	ErrThreadRead = errors.New("thread error: could not read image from camera")
	ErrRead       = errors.New("could not read image from camera")
	ErrRelease    = errors.New("could not release camera")
	ErrUnknown    = errors.New("unknown error has occurred")
	// ErrHistory is returned by Read in debug mode once the error history
	// holds a non-zero current code.
	ErrHistory = errors.New("an error has occurred")
)

// CaptureError is the error returned by Camera operations in debug mode.
type CaptureError struct {
	Code    ErrorCode
	Type    CameraType
	History []ErrorCode
	Err     error
}

func (e *CaptureError) Error() string {
	switch {
	case e.Code == ErrCodeOpen:
		return fmt.Sprintf("%s camera: %v", e.Type, e.Err)
	case len(e.History) > 0:
		return fmt.Sprintf("%v, error history: %v", e.Err, e.History)
	default:
		return e.Err.Error()
	}
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
