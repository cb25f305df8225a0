package nanocam

import (
	"fmt"
	"strings"
)

// Stages of a GStreamer descriptor are joined with " ! ".
func joinStages(stages ...string) string {
	return strings.Join(stages, " ! ")
}

// element renders a pipeline element followed by its properties,
// dropping empty property groups.
func element(name string, props ...string) string {
	parts := []string{name}
	for _, p := range props {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// CropRect returns the nvvidconv crop rectangle for cfg and whether one applies.
func CropRect(cfg Config) (left, right, top, bottom int, ok bool) {
	if cfg.Crop > 0 && cfg.Crop < 1 {
		sw, sh := cfg.SensorSize()
		cw := int(float64(sw) * cfg.Crop)
		ch := int(float64(sh) * cfg.Crop)

		switch {
		case cfg.ShiftX != -1:
			left = cfg.ShiftX
		case cfg.CropCentred:
			left = (sw - cw) / 2
		default:
			left = cw / 2
		}
		right = left + cw

		switch {
		case cfg.ShiftY != -1:
			top = cfg.ShiftY
		case cfg.CropCentred:
			top = (sh - ch) / 2
		default:
			top = ch / 2
		}
		bottom = top + ch
		return left, right, top, bottom, true
	}
	if cfg.CropLeft+cfg.CropRight+cfg.CropTop+cfg.CropBottom > 0 {
		return cfg.CropLeft, cfg.CropRight, cfg.CropTop, cfg.CropBottom, true
	}
	return 0, 0, 0, 0, false
}

// CropString renders the crop rectangle as nvvidconv properties, or "".
// Cropping happens on the raw sensor frame before scaling.
func CropString(cfg Config) string {
	left, right, top, bottom, ok := CropRect(cfg)
	if !ok {
		return ""
	}
	return fmt.Sprintf("left=%d right=%d top=%d bottom=%d", left, right, top, bottom)
}

// ExposureString renders the manual exposure properties of nvarguscamerasrc, or "".
func ExposureString(cfg Config) string {
	if !cfg.ExposureManual {
		return ""
	}
	return fmt.Sprintf(`aelock=true exposuretimerange="%d %d" gainrange="%d %d" ispdigitalgainrange="%d %d"`,
		cfg.ExposureTime, cfg.ExposureTime,
		cfg.ExposureGain, cfg.ExposureGain,
		cfg.ExposureDigitalGain, cfg.ExposureDigitalGain,
	)
}

func csiSource(cfg Config) []string {
	sw, sh := cfg.SensorSize()
	return []string{
		element("nvarguscamerasrc",
			fmt.Sprintf("sensor-id=%d", cfg.DeviceID),
			fmt.Sprintf("wbmode=%d", cfg.WBMode),
			ExposureString(cfg),
		),
		fmt.Sprintf("video/x-raw(memory:NVMM), width=(int)%d, height=(int)%d, format=(string)NV12, framerate=(fraction)%d/1",
			sw, sh, cfg.FPS),
		element("nvvidconv", fmt.Sprintf("flip-method=%d", cfg.Flip), CropString(cfg)),
	}
}

func CSIPipeline(cfg Config) string {
	stages := csiSource(cfg)
	stages = append(stages,
		fmt.Sprintf("video/x-raw, width=(int)%d, height=(int)%d, pixel-aspect-ratio=1/1, format=(string)BGRx",
			cfg.Width, cfg.Height),
		"videoconvert",
		"video/x-raw, format=(string)BGR",
		"appsink",
	)
	return joinStages(stages...)
}

// CSIRecordPipeline tees the sensor stream: one branch writes JPEG files
// through multifilesink at the record rate, the other feeds appsink.
func CSIRecordPipeline(cfg Config) string {
	stages := csiSource(cfg)
	stages = append(stages,
		"video/x-raw(memory:NVMM)",
		"tee name=t",
		"queue",
		"nvvidconv",
		"video/x-raw",
		"videorate drop-only=true",
		fmt.Sprintf("video/x-raw,framerate=%d/%d", cfg.RecordRateNum, cfg.RecordRateDen),
		"nvjpegenc",
		"identity drop-allocation=true",
		fmt.Sprintf("multifilesink location=%s t.", cfg.RecordPath),
		"queue",
		"nvvidconv",
		"video/x-raw, format=(string)BGRx",
		"videoconvert",
		fmt.Sprintf("video/x-raw, width=(int)%d, height=(int)%d, format=(string)BGR", cfg.Width, cfg.Height),
		"identity drop-allocation=true",
		"appsink",
	)
	return joinStages(stages...)
}

func usbSource(device string, cfg Config) []string {
	return []string{
		fmt.Sprintf("v4l2src device=%s", device),
		fmt.Sprintf("video/x-raw, width=(int)%d, height=(int)%d, format=(string)YUY2, framerate=(fraction)%d/1",
			cfg.Width, cfg.Height, cfg.FPS),
	}
}

func USBPipeline(device string, cfg Config) string {
	stages := usbSource(device, cfg)
	stages = append(stages, "videoconvert", "video/x-raw, format=BGR", "appsink")
	return joinStages(stages...)
}

// USBEnforceFPSPipeline adds a videorate stage so the device delivers
// exactly cfg.FPS frames per second.
func USBEnforceFPSPipeline(device string, cfg Config) string {
	stages := usbSource(device, cfg)
	stages = append(stages,
		"videorate",
		fmt.Sprintf("video/x-raw, framerate=(fraction)%d/1", cfg.FPS),
		"videoconvert",
		"video/x-raw, format=BGR",
		"appsink",
	)
	return joinStages(stages...)
}

func scaledTail(cfg Config) []string {
	return []string{
		"videorate",
		"videoscale",
		fmt.Sprintf("video/x-raw, width=(int)%d, height=(int)%d, framerate=(fraction)%d/1",
			cfg.Width, cfg.Height, cfg.FPS),
		"videoconvert",
		"video/x-raw, format=BGR",
		"appsink",
	}
}

func RTSPPipeline(location string, cfg Config) string {
	stages := []string{
		fmt.Sprintf("rtspsrc location=%s", withScheme("rtsp", location)),
		"rtph264depay",
		"h264parse",
		"omxh264dec",
	}
	return joinStages(append(stages, scaledTail(cfg)...)...)
}

func MJPEGPipeline(location string, cfg Config) string {
	stages := []string{
		fmt.Sprintf("souphttpsrc location=%s do-timestamp=true is_live=true", withScheme("http", location)),
		"multipartdemux",
		"jpegdec",
	}
	return joinStages(append(stages, scaledTail(cfg)...)...)
}

func withScheme(scheme, location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	return scheme + "://" + location
}

// DevicePath returns the V4L2 device node of a USB camera index.
func DevicePath(id int) string {
	return fmt.Sprintf("/dev/video%d", id)
}

// Pipeline selects the descriptor for cfg.Type. Unknown selectors are
// treated as USB cameras.
func Pipeline(cfg Config) string {
	switch cfg.Type {
	case CameraCSI:
		if cfg.Record {
			return CSIRecordPipeline(cfg)
		}
		return CSIPipeline(cfg)
	case CameraRTSP:
		return RTSPPipeline(cfg.Source, cfg)
	case CameraMJPEG:
		return MJPEGPipeline(cfg.Source, cfg)
	default:
		if cfg.EnforceFPS {
			return USBEnforceFPSPipeline(DevicePath(cfg.DeviceID), cfg)
		}
		return USBPipeline(DevicePath(cfg.DeviceID), cfg)
	}
}
