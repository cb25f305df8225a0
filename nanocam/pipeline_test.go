package nanocam

import (
	"strings"
	"testing"
)

func TestCSIPipeline(t *testing.T) {
	cfg := DefaultConfig()
	want := "nvarguscamerasrc sensor-id=0 wbmode=1 ! " +
		"video/x-raw(memory:NVMM), width=(int)640, height=(int)480, format=(string)NV12, framerate=(fraction)30/1 ! " +
		"nvvidconv flip-method=0 ! " +
		"video/x-raw, width=(int)640, height=(int)480, pixel-aspect-ratio=1/1, format=(string)BGRx ! " +
		"videoconvert ! video/x-raw, format=(string)BGR ! appsink"

	if got := CSIPipeline(cfg); got != want {
		t.Errorf("CSIPipeline() =\n%s\nwant\n%s", got, want)
	}
}

func TestCSIPipeline_SensorCropExposure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceID = 1
	cfg.Flip = 2
	cfg.SensorWidth = 1920
	cfg.SensorHeight = 1080
	cfg.Width = 960
	cfg.Height = 540
	cfg.CropLeft, cfg.CropRight, cfg.CropTop, cfg.CropBottom = 10, 1910, 20, 1060
	cfg.ExposureManual = true
	cfg.ExposureTime = 13000
	cfg.ExposureGain = 1
	cfg.ExposureDigitalGain = 2

	want := `nvarguscamerasrc sensor-id=1 wbmode=1 aelock=true exposuretimerange="13000 13000" gainrange="1 1" ispdigitalgainrange="2 2" ! ` +
		"video/x-raw(memory:NVMM), width=(int)1920, height=(int)1080, format=(string)NV12, framerate=(fraction)30/1 ! " +
		"nvvidconv flip-method=2 left=10 right=1910 top=20 bottom=1060 ! " +
		"video/x-raw, width=(int)960, height=(int)540, pixel-aspect-ratio=1/1, format=(string)BGRx ! " +
		"videoconvert ! video/x-raw, format=(string)BGR ! appsink"

	if got := CSIPipeline(cfg); got != want {
		t.Errorf("CSIPipeline() =\n%s\nwant\n%s", got, want)
	}
}

func TestCSIRecordPipeline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Record = true
	cfg.RecordRateNum = 1
	cfg.RecordRateDen = 5
	cfg.RecordPath = "/tmp/photos/name%05d.jpg"

	want := "nvarguscamerasrc sensor-id=0 wbmode=1 ! " +
		"video/x-raw(memory:NVMM), width=(int)640, height=(int)480, format=(string)NV12, framerate=(fraction)30/1 ! " +
		"nvvidconv flip-method=0 ! video/x-raw(memory:NVMM) ! tee name=t ! queue ! nvvidconv ! video/x-raw ! " +
		"videorate drop-only=true ! video/x-raw,framerate=1/5 ! nvjpegenc ! identity drop-allocation=true ! " +
		"multifilesink location=/tmp/photos/name%05d.jpg t. ! " +
		"queue ! nvvidconv ! video/x-raw, format=(string)BGRx ! videoconvert ! " +
		"video/x-raw, width=(int)640, height=(int)480, format=(string)BGR ! identity drop-allocation=true ! appsink"

	if got := Pipeline(cfg); got != want {
		t.Errorf("Pipeline() =\n%s\nwant\n%s", got, want)
	}
}

func TestUSBPipelines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Type = CameraUSB
	cfg.DeviceID = 1

	want := "v4l2src device=/dev/video1 ! " +
		"video/x-raw, width=(int)640, height=(int)480, format=(string)YUY2, framerate=(fraction)30/1 ! " +
		"videoconvert ! video/x-raw, format=BGR ! appsink"
	if got := Pipeline(cfg); got != want {
		t.Errorf("USB Pipeline() =\n%s\nwant\n%s", got, want)
	}

	cfg.EnforceFPS = true
	cfg.FPS = 15
	want = "v4l2src device=/dev/video1 ! " +
		"video/x-raw, width=(int)640, height=(int)480, format=(string)YUY2, framerate=(fraction)15/1 ! " +
		"videorate ! video/x-raw, framerate=(fraction)15/1 ! " +
		"videoconvert ! video/x-raw, format=BGR ! appsink"
	if got := Pipeline(cfg); got != want {
		t.Errorf("USB enforce-fps Pipeline() =\n%s\nwant\n%s", got, want)
	}
}

func TestNetworkPipelines(t *testing.T) {
	tests := []struct {
		name   string
		typ    CameraType
		source string
		want   string
	}{
		{
			name:   "rtsp",
			typ:    CameraRTSP,
			source: "192.168.1.10:8554/stream",
			want: "rtspsrc location=rtsp://192.168.1.10:8554/stream ! rtph264depay ! h264parse ! omxh264dec ! " +
				"videorate ! videoscale ! video/x-raw, width=(int)640, height=(int)480, framerate=(fraction)30/1 ! " +
				"videoconvert ! video/x-raw, format=BGR ! appsink",
		},
		{
			name:   "mjpeg",
			typ:    CameraMJPEG,
			source: "localhost:8080",
			want: "souphttpsrc location=http://localhost:8080 do-timestamp=true is_live=true ! multipartdemux ! jpegdec ! " +
				"videorate ! videoscale ! video/x-raw, width=(int)640, height=(int)480, framerate=(fraction)30/1 ! " +
				"videoconvert ! video/x-raw, format=BGR ! appsink",
		},
		{
			name:   "scheme kept",
			typ:    CameraMJPEG,
			source: "https://cam.local/video",
			want: "souphttpsrc location=https://cam.local/video do-timestamp=true is_live=true ! multipartdemux ! jpegdec ! " +
				"videorate ! videoscale ! video/x-raw, width=(int)640, height=(int)480, framerate=(fraction)30/1 ! " +
				"videoconvert ! video/x-raw, format=BGR ! appsink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Type = tt.typ
			cfg.Source = tt.source
			if got := Pipeline(cfg); got != tt.want {
				t.Errorf("Pipeline() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestPipeline_Selector(t *testing.T) {
	tests := []struct {
		typ    CameraType
		prefix string
	}{
		{CameraCSI, "nvarguscamerasrc "},
		{CameraUSB, "v4l2src "},
		{CameraRTSP, "rtspsrc "},
		{CameraMJPEG, "souphttpsrc "},
		{CameraType(7), "v4l2src "},
		{CameraType(-2), "v4l2src "},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Type = tt.typ
		if got := Pipeline(cfg); !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("Pipeline(type %d) = %q, want prefix %q", int(tt.typ), got, tt.prefix)
		}
	}
}

func TestCropString(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"no crop", func(c *Config) {}, ""},
		{"crop of 1 disables fraction", func(c *Config) { c.Crop = 1 }, ""},
		{
			"fraction starts at half the crop size",
			func(c *Config) { c.Crop = 0.25 },
			"left=80 right=240 top=60 bottom=180",
		},
		{
			"fraction of the sensor size",
			func(c *Config) {
				c.SensorWidth, c.SensorHeight = 1920, 1080
				c.Crop = 0.4
			},
			"left=384 right=1152 top=216 bottom=648",
		},
		{
			"centred fraction",
			func(c *Config) {
				c.SensorWidth, c.SensorHeight = 1920, 1080
				c.Crop = 0.25
				c.CropCentred = true
			},
			"left=720 right=1200 top=405 bottom=675",
		},
		{
			"shifted fraction",
			func(c *Config) {
				c.SensorWidth, c.SensorHeight = 1920, 1080
				c.Crop = 0.5
				c.ShiftX, c.ShiftY = 0, 100
				c.CropCentred = true
			},
			"left=0 right=960 top=100 bottom=640",
		},
		{
			"explicit edges",
			func(c *Config) { c.CropLeft, c.CropRight, c.CropTop, c.CropBottom = 0, 600, 0, 400 },
			"left=0 right=600 top=0 bottom=400",
		},
		{
			"fraction wins over edges",
			func(c *Config) {
				c.Crop = 0.5
				c.CropRight = 100
			},
			"left=160 right=480 top=120 bottom=360",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if got := CropString(cfg); got != tt.want {
				t.Errorf("CropString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExposureString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExposureTime = 100
	if got := ExposureString(cfg); got != "" {
		t.Errorf("ExposureString() without manual exposure = %q, want empty", got)
	}

	cfg.ExposureManual = true
	cfg.ExposureGain = 4
	want := `aelock=true exposuretimerange="100 100" gainrange="4 4" ispdigitalgainrange="0 0"`
	if got := ExposureString(cfg); got != want {
		t.Errorf("ExposureString() = %q, want %q", got, want)
	}
}
