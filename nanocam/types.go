package nanocam

import (
	"fmt"
	"strconv"
	"strings"
)

// CameraType selects which descriptor builder is used for a camera.
type CameraType int

const (
	CameraCSI   CameraType = 0
	CameraUSB   CameraType = 1
	CameraRTSP  CameraType = 2
	CameraMJPEG CameraType = 3
)

func (t CameraType) String() string {
	switch t {
	case CameraCSI:
		return "csi"
	case CameraRTSP:
		return "rtsp"
	case CameraMJPEG:
		return "mjpeg"
	default:
		// every other selector opens a USB device node
		return "usb"
	}
}

// ParseCameraType accepts either a transport name or its numeric selector.
func ParseCameraType(s string) (CameraType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "csi":
		return CameraCSI, nil
	case "usb":
		return CameraUSB, nil
	case "rtsp":
		return CameraRTSP, nil
	case "mjpeg", "http":
		return CameraMJPEG, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return CameraCSI, fmt.Errorf("unknown camera type %q", s)
	}
	return CameraType(n), nil
}

func (t CameraType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *CameraType) UnmarshalText(text []byte) error {
	parsed, err := ParseCameraType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ErrorCode is one entry of a camera's error history.
type ErrorCode int

const (
	ErrCodeUnknown    ErrorCode = -1
	ErrCodeNone       ErrorCode = 0
	ErrCodeOpen       ErrorCode = 1
	ErrCodeThreadRead ErrorCode = 2
	ErrCodeRead       ErrorCode = 3
	ErrCodeRelease    ErrorCode = 4
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "no error"
	case ErrCodeOpen:
		return "could not initialize camera"
	case ErrCodeThreadRead:
		return "thread error: could not read image from camera"
	case ErrCodeRead:
		return "could not read image from camera"
	case ErrCodeRelease:
		return "could not release camera"
	default:
		return "unknown error"
	}
}

type CameraState byte

const (
	StateClosed CameraState = iota
	StateReady
	StateError
)

func (s CameraState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "closed"
	}
}

type CameraStateMessage struct {
	State     CameraState
	StateName string
	Ready     bool
	Errors    []ErrorCode
	Type      CameraType
	Pipeline  string
	Timestamp int64
}

type CameraSnapshotMessage struct {
	Timestamp int64
	Width     int
	Height    int
}
