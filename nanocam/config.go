package nanocam

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSource       = "localhost:8080"
	DefaultRecordPath   = "/mnt/ramdisk/image%07d.jpg"
	DefaultStartupDelay = 1500 * time.Millisecond
)

// Config holds the capture parameters of a single camera.
// A Camera copies it at construction and never changes it afterwards.
type Config struct {
	Type     CameraType `yaml:"type"`
	DeviceID int        `yaml:"device_id"` // CSI sensor id or /dev/video<N>
	Source   string     `yaml:"source"`    // host:port[/path] for RTSP and MJPEG

	Flip       int  `yaml:"flip"` // nvvidconv flip-method
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	FPS        int  `yaml:"fps"`
	EnforceFPS bool `yaml:"enforce_fps"`
	Debug      bool `yaml:"debug"`

	// Sensor resolution, 0 means same as Width/Height.
	SensorWidth  int `yaml:"sensor_width"`
	SensorHeight int `yaml:"sensor_height"`

	// Crop in (0,1) crops that fraction of the sensor frame, starting at
	// ShiftX/ShiftY. A shift of -1 starts the window at half the crop size,
	// or centres it on the sensor when CropCentred is set. Otherwise the
	// explicit crop edges are used if any of them is set.
	Crop        float64 `yaml:"crop"`
	CropCentred bool    `yaml:"crop_centred"`
	ShiftX      int     `yaml:"shift_x"`
	ShiftY      int     `yaml:"shift_y"`
	CropLeft    int     `yaml:"crop_left"`
	CropRight   int     `yaml:"crop_right"`
	CropTop     int     `yaml:"crop_top"`
	CropBottom  int     `yaml:"crop_bottom"`

	// 0 off, 1 auto, 2 incandescent, 3 fluorescent, 4 warm-fluorescent,
	// 5 daylight, 6 cloudy-daylight, 7 twilight, 8 shade, 9 manual
	WBMode int `yaml:"wb_mode"`

	ExposureManual      bool `yaml:"exposure_manual"`
	ExposureTime        int  `yaml:"exposure_time"`
	ExposureGain        int  `yaml:"exposure_gain"`
	ExposureDigitalGain int  `yaml:"exposure_digital_gain"`

	// CSI only: JPEG files are written at RecordRateNum/RecordRateDen fps.
	Record        bool   `yaml:"record"`
	RecordRateNum int    `yaml:"record_rate_num"`
	RecordRateDen int    `yaml:"record_rate_den"`
	RecordPath    string `yaml:"record_path"`

	StartupDelay time.Duration `yaml:"startup_delay"`
}

func DefaultConfig() Config {
	return Config{
		Type:          CameraCSI,
		DeviceID:      0,
		Source:        DefaultSource,
		Flip:          0,
		Width:         640,
		Height:        480,
		FPS:           30,
		Crop:          1,
		ShiftX:        -1,
		ShiftY:        -1,
		WBMode:        1,
		RecordRateNum: 1,
		RecordRateDen: 1,
		RecordPath:    DefaultRecordPath,
		StartupDelay:  DefaultStartupDelay,
	}
}

// SensorSize returns the sensor resolution with the zero defaults resolved.
func (c Config) SensorSize() (int, int) {
	w, h := c.SensorWidth, c.SensorHeight
	if w == 0 {
		w = c.Width
	}
	if h == 0 {
		h = c.Height
	}
	return w, h
}

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("resolution must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.SensorWidth < 0 || c.SensorHeight < 0 {
		errs = append(errs, fmt.Errorf("sensor resolution must not be negative, got %dx%d", c.SensorWidth, c.SensorHeight))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.Flip < 0 || c.Flip > 7 {
		errs = append(errs, fmt.Errorf("flip must be between 0 and 7, got %d", c.Flip))
	}
	if c.WBMode < 0 || c.WBMode > 9 {
		errs = append(errs, fmt.Errorf("wb_mode must be between 0 and 9, got %d", c.WBMode))
	}
	if c.Crop < 0 {
		errs = append(errs, fmt.Errorf("crop must not be negative, got %g", c.Crop))
	}
	if c.CropLeft < 0 || c.CropRight < 0 || c.CropTop < 0 || c.CropBottom < 0 {
		errs = append(errs, errors.New("crop edges must not be negative"))
	}
	if c.RecordRateNum <= 0 || c.RecordRateDen <= 0 {
		errs = append(errs, fmt.Errorf("record rate must be positive, got %d/%d", c.RecordRateNum, c.RecordRateDen))
	}
	if c.Record && c.RecordPath == "" {
		errs = append(errs, errors.New("record_path is required when record is enabled"))
	}
	if c.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("startup_delay must not be negative, got %s", c.StartupDelay))
	}
	return errors.Join(errs...)
}

func (t *CameraType) UnmarshalYAML(value *yaml.Node) error {
	return t.UnmarshalText([]byte(value.Value))
}

// AppConfig is the configuration file layout of the nanocam command.
type AppConfig struct {
	LogLevel  string          `yaml:"log_level"`
	Camera    Config          `yaml:"camera"`
	FileMover FileMoverConfig `yaml:"filemover"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		LogLevel:  "INFO",
		Camera:    DefaultConfig(),
		FileMover: DefaultFileMoverConfig(),
		MQTT:      DefaultMQTTConfig(),
	}
}

// LoadConfig reads the YAML file at path on top of the defaults (an empty
// path skips the file), then applies environment overrides.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CAMERA_TYPE"); v != "" {
		t, err := ParseCameraType(v)
		if err != nil {
			return fmt.Errorf("CAMERA_TYPE: %w", err)
		}
		c.Camera.Type = t
	}
	if v := os.Getenv("CAMERA_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAMERA_DEVICE: %w", err)
		}
		c.Camera.DeviceID = n
	}
	if v := os.Getenv("CAMERA_SOURCE"); v != "" {
		c.Camera.Source = v
	}
	if v := os.Getenv("CAMERA_FRAMERATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAMERA_FRAMERATE: %w", err)
		}
		INFOLogger.Println("Setting CAMERA_FRAMERATE value provided in CAMERA_FRAMERATE env variable: ", n)
		c.Camera.FPS = n
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	return nil
}

func (c AppConfig) Validate() error {
	var errs []error
	if err := c.Camera.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}
	if err := c.FileMover.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("filemover: %w", err))
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mqtt: %w", err))
	}
	return errors.Join(errs...)
}
