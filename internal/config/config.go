package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 64 << 10

//go:embed default.yaml
var defaultYAML []byte

// Backend names.
const (
	EchoCdev   = "cdev"
	EchoPeriph = "periph"
	EchoRPi    = "rpio"
	EchoMock   = "mock"

	ServoRPi     = "rpio"
	ServoPCA9685 = "pca9685"
	ServoMock    = "mock"

	DisplayHD44780 = "hd44780"
	DisplaySerial  = "serial"
	DisplayMock    = "mock"
)

// TriggerConfig holds the sonar trigger output.
type TriggerConfig struct {
	Pin     int `yaml:"pin"`      // BCM pin
	WidthUs int `yaml:"width_us"` // pulse width (µs)
}

// EchoConfig selects the interrupt line used for the echo input.
type EchoConfig struct {
	Type          string `yaml:"type"`            // "cdev", "periph", "rpio" or "mock"
	Chip          string `yaml:"chip"`            // cdev: GPIO chip, e.g. "gpiochip0"
	Pin           int    `yaml:"pin"`             // cdev: line offset; rpio: BCM pin
	Name          string `yaml:"name"`            // periph: pin name, e.g. "GPIO24"
	PollUs        int    `yaml:"poll_us"`         // rpio: edge latch poll interval (µs), 0 = spin
	MinWidthTicks int    `yaml:"min_width_ticks"` // shorter echoes count as no echo (0.5 µs ticks)
	SimDistanceCm int    `yaml:"sim_distance_cm"` // mock: simulated target, 0 = no echo
}

// ServoConfig selects the flap servo backend.
type ServoConfig struct {
	Type    string `yaml:"type"`    // "rpio", "pca9685" or "mock"
	Pin     int    `yaml:"pin"`     // rpio: hardware PWM pin (12, 13, 18 or 19)
	I2CBus  string `yaml:"i2c_bus"` // pca9685: bus name, "" = first bus
	Address uint16 `yaml:"address"` // pca9685: I2C address
	Channel int    `yaml:"channel"` // pca9685: output channel 0-15
}

// DisplayConfig selects the 16x2 character display.
type DisplayConfig struct {
	Type     string `yaml:"type"`      // "hd44780", "serial" or "mock"
	I2CBus   string `yaml:"i2c_bus"`   // hd44780: bus name, "" = first bus
	Address  uint8  `yaml:"address"`   // hd44780: backpack I2C address
	Port     string `yaml:"port"`      // serial: device, e.g. "/dev/ttyS0"
	Baud     int    `yaml:"baud"`      // serial: baud rate
	SettleMs int    `yaml:"settle_ms"` // pause after each range update (ms)
}

// IndicatorConfig holds the buzzer and LED bank.
type IndicatorConfig struct {
	BuzzerPin int   `yaml:"buzzer_pin"`
	BeepMs    int   `yaml:"beep_ms"`
	LEDPins   []int `yaml:"led_pins"` // bit 0 first; 0 = not connected
}

// MotorConfig holds the conveyor H-bridge inputs.
type MotorConfig struct {
	In1Pin  int  `yaml:"in1_pin"`
	In2Pin  int  `yaml:"in2_pin"`
	Reverse bool `yaml:"reverse"` // belt runs with IN2 driven (motor mounted the other way)
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock hardware everywhere (true=dev/bench, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Trigger   TriggerConfig   `yaml:"trigger"`
	Echo      EchoConfig      `yaml:"echo"`
	Servo     ServoConfig     `yaml:"servo"`
	Display   DisplayConfig   `yaml:"display"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Motor     MotorConfig     `yaml:"motor"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// Default returns the compiled-in bench configuration.
func Default() (*Config, error) {
	return parse(defaultYAML)
}

// ValidateConfigPath accepts only .yaml files sitting directly in a
// directory named "configs", without any ".." element.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == filepath.Separator }) {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Echo.Type == "" {
		return nil, errors.New("echo.type is required")
	}
	switch cfg.Echo.Type {
	case EchoCdev:
		if cfg.Echo.Pin <= 0 {
			return nil, errors.New("echo.pin must be > 0 for cdev")
		}
		if cfg.Echo.Chip == "" {
			cfg.Echo.Chip = "gpiochip0"
		}
	case EchoPeriph:
		if cfg.Echo.Name == "" {
			return nil, errors.New("echo.name is required for periph")
		}
	case EchoRPi:
		if cfg.Echo.Pin <= 0 {
			return nil, errors.New("echo.pin must be > 0 for rpio")
		}
		if cfg.Echo.PollUs < 0 {
			return nil, fmt.Errorf("echo.poll_us must be >= 0, got %d", cfg.Echo.PollUs)
		}
	case EchoMock:
	default:
		return nil, fmt.Errorf("unsupported echo.type: %s", cfg.Echo.Type)
	}
	if cfg.Echo.MinWidthTicks < 0 || cfg.Echo.MinWidthTicks > 0xFFFF {
		return nil, fmt.Errorf("echo.min_width_ticks must be between 0 and 65535, got %d", cfg.Echo.MinWidthTicks)
	}
	if cfg.Echo.MinWidthTicks == 0 {
		cfg.Echo.MinWidthTicks = 1 // only a missing echo is rejected
	}
	if cfg.Echo.SimDistanceCm < 0 || cfg.Echo.SimDistanceCm > 400 {
		return nil, fmt.Errorf("echo.sim_distance_cm must be between 0 and 400, got %d", cfg.Echo.SimDistanceCm)
	}

	if cfg.Trigger.Pin <= 0 {
		return nil, errors.New("trigger.pin must be > 0")
	}
	if cfg.Trigger.WidthUs <= 0 {
		cfg.Trigger.WidthUs = 12 // sensor needs >= 10 µs
	}

	switch cfg.Servo.Type {
	case ServoRPi:
		switch cfg.Servo.Pin {
		case 12, 13, 18, 19:
		default:
			return nil, fmt.Errorf("servo.pin %d has no hardware PWM", cfg.Servo.Pin)
		}
	case ServoPCA9685:
		if cfg.Servo.Address == 0 {
			cfg.Servo.Address = 0x40
		}
		if cfg.Servo.Channel < 0 || cfg.Servo.Channel > 15 {
			return nil, fmt.Errorf("servo.channel must be between 0 and 15, got %d", cfg.Servo.Channel)
		}
	case ServoMock:
	case "":
		return nil, errors.New("servo.type is required")
	default:
		return nil, fmt.Errorf("unsupported servo.type: %s", cfg.Servo.Type)
	}

	switch cfg.Display.Type {
	case DisplayHD44780:
		if cfg.Display.Address == 0 {
			cfg.Display.Address = 0x27
		}
	case DisplaySerial:
		if cfg.Display.Port == "" {
			return nil, errors.New("display.port is required for serial")
		}
		if cfg.Display.Baud <= 0 {
			cfg.Display.Baud = 9600
		}
	case DisplayMock:
	case "":
		return nil, errors.New("display.type is required")
	default:
		return nil, fmt.Errorf("unsupported display.type: %s", cfg.Display.Type)
	}
	if cfg.Display.SettleMs < 0 {
		return nil, fmt.Errorf("display.settle_ms must be >= 0, got %d", cfg.Display.SettleMs)
	}

	if len(cfg.Indicator.LEDPins) > 8 {
		return nil, fmt.Errorf("indicator.led_pins holds at most 8 pins, got %d", len(cfg.Indicator.LEDPins))
	}
	if cfg.Indicator.BeepMs <= 0 {
		cfg.Indicator.BeepMs = 100
	}
	if cfg.Motor.In1Pin > 0 && cfg.Motor.In1Pin == cfg.Motor.In2Pin {
		return nil, errors.New("motor.in1_pin and motor.in2_pin must differ")
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// TriggerWidth returns the trigger pulse width.
func (c *Config) TriggerWidth() time.Duration {
	return time.Duration(c.Trigger.WidthUs) * time.Microsecond
}

// EchoPoll returns the rpio edge latch poll interval.
func (c *Config) EchoPoll() time.Duration {
	return time.Duration(c.Echo.PollUs) * time.Microsecond
}

// BeepDuration returns how long the buzzer sounds.
func (c *Config) BeepDuration() time.Duration {
	return time.Duration(c.Indicator.BeepMs) * time.Millisecond
}

// DisplaySettle returns the pause after a range update.
func (c *Config) DisplaySettle() time.Duration {
	return time.Duration(c.Display.SettleMs) * time.Millisecond
}
