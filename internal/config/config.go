package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds the settings of the kiosk scanner and the staff CLI.
type Config struct {
	Server      string        `json:"server"`
	Email       string        `json:"email"`
	Password    string        `json:"password"`
	HTTPTimeout time.Duration `json:"-"`
	CADir       string        `json:"caDir"`

	CameraURL string `json:"cameraUrl"`
	CameraDir string `json:"cameraDir"`

	KioskAddr   string `json:"kioskAddr"`
	KioskOrigin string `json:"kioskOrigin"`

	ScanFPS          int           `json:"scanFps"`
	ScanMaxDimension int           `json:"scanMaxDimension"`
	ScanDebounce     time.Duration `json:"-"`

	JournalPath string `json:"journalPath"`
	LogFile     string `json:"logFile"`
	LogLevel    string `json:"logLevel"`

	// Durations are written as Go duration strings in config.json.
	RawHTTPTimeout  string `json:"httpTimeout"`
	RawScanDebounce string `json:"scanDebounce"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:           "http://localhost:5000",
		HTTPTimeout:      15 * time.Second,
		KioskAddr:        ":8085",
		KioskOrigin:      "*",
		ScanFPS:          30,
		ScanMaxDimension: 640,
		ScanDebounce:     1500 * time.Millisecond,
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, the JSON file at path (a
// missing file is not an error), a .env file and the process environment,
// in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = "config.json"
	}
	if err := cfg.readFile(path); err != nil {
		return cfg, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "load .env")
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(c); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	if c.RawHTTPTimeout != "" {
		d, err := time.ParseDuration(c.RawHTTPTimeout)
		if err != nil {
			return errors.Wrap(err, "httpTimeout")
		}
		c.HTTPTimeout = d
	}
	if c.RawScanDebounce != "" {
		d, err := time.ParseDuration(c.RawScanDebounce)
		if err != nil {
			return errors.Wrap(err, "scanDebounce")
		}
		c.ScanDebounce = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server = getEnv("ASISTENCIA_SERVER", c.Server)
	c.Email = getEnv("ASISTENCIA_EMAIL", c.Email)
	c.Password = getEnv("ASISTENCIA_PASSWORD", c.Password)
	c.CADir = getEnv("CA_DIR", c.CADir)
	c.CameraURL = getEnv("CAMERA_URL", c.CameraURL)
	c.CameraDir = getEnv("CAMERA_DIR", c.CameraDir)
	c.KioskAddr = getEnv("KIOSK_ADDR", c.KioskAddr)
	c.KioskOrigin = getEnv("KIOSK_ORIGIN", c.KioskOrigin)
	c.JournalPath = getEnv("JOURNAL_PATH", c.JournalPath)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.ScanFPS, err = getEnvInt("SCAN_FPS", c.ScanFPS); err != nil {
		return err
	}
	if c.ScanMaxDimension, err = getEnvInt("SCAN_MAX_DIMENSION", c.ScanMaxDimension); err != nil {
		return err
	}
	if c.ScanDebounce, err = getEnvDuration("SCAN_DEBOUNCE", c.ScanDebounce); err != nil {
		return err
	}
	if c.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	c.Server = strings.TrimRight(c.Server, "/")
	return nil
}

// Validate rejects settings the scanner cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Server == "":
		return errors.New("server URL is required")
	case c.ScanFPS <= 0 || c.ScanFPS > 120:
		return errors.Errorf("scan fps must be in 1..120, got %d", c.ScanFPS)
	case c.ScanMaxDimension < 64:
		return errors.Errorf("scan max dimension must be at least 64, got %d", c.ScanMaxDimension)
	case c.ScanDebounce <= 0:
		return errors.New("scan debounce must be positive")
	case c.HTTPTimeout <= 0:
		return errors.New("http timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, errors.Wrapf(err, "%s", key)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, errors.Wrapf(err, "%s", key)
	}
	return d, nil
}
