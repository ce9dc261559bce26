package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------- ValidateConfigPath ----------

// rigConfigDir creates <tmp>/configs holding the shipped rig file names.
func rigConfigDir(t *testing.T) string {
	t.Helper()
	cfgDir := filepath.Join(t.TempDir(), "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"rpi.yaml", "pca9685-serial.yaml", "rpio-echo.yaml"} {
		if err := os.WriteFile(filepath.Join(cfgDir, name), []byte(minimalYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfgDir
}

func TestValidateConfigPath(t *testing.T) {
	cfgDir := rigConfigDir(t)

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"rig_config", filepath.Join(cfgDir, "rpi.yaml"), false},
		{"variant_config", filepath.Join(cfgDir, "pca9685-serial.yaml"), false},
		{"relative_rig_config", "configs/rpio-echo.yaml", false},
		{"space_in_name", filepath.Join(cfgDir, "bench rig.yaml"), false},
		{"accent_in_name", filepath.Join(cfgDir, "triée.yaml"), false},
		{"empty", "", true},
		{"dotdot_escape", "../../etc/passwd", true},
		{"dotdot_inside_configs", "configs/../../../etc/shadow", true},
		{"dotdot_back_into_configs", "configs/../configs/rpi.yaml", true},
		{"yml_extension", "configs/rpi.yml", true},
		{"json_extension", "configs/rpi.json", true},
		{"no_extension", "configs/rpi", true},
		{"wrong_directory", "boards/rpi.yaml", true},
		{"bare_name", "rpi.yaml", true},
		{"absolute_outside", "/etc/sortgo/rpi.yaml", true},
		{"nested_below_configs", "configs/old/rpi.yaml", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfigPath(tc.path)
			if tc.wantErr && err == nil {
				t.Errorf("ValidateConfigPath(%q): expected error", tc.path)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("ValidateConfigPath(%q): %v", tc.path, err)
			}
		})
	}
}

func TestValidateConfigPath_LongName(t *testing.T) {
	long := "configs/" + strings.Repeat("rig", 400) + ".yaml"
	// Only the shape is checked, so length alone is not an error.
	if err := ValidateConfigPath(long); err != nil {
		t.Errorf("long name rejected: %v", err)
	}
}

func TestValidateConfigPath_ThenLoad(t *testing.T) {
	path := filepath.Join(rigConfigDir(t), "rpi.yaml")
	if err := ValidateConfigPath(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load(%s): %v", path, err)
	}
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
trigger:
  pin: 23
  width_us: 15
echo:
  type: "cdev"
  chip: "gpiochip4"
  pin: 24
  min_width_ticks: 116
servo:
  type: "rpio"
  pin: 18
display:
  type: "hd44780"
  address: 0x3f
  settle_ms: 2
indicator:
  buzzer_pin: 22
  beep_ms: 50
  led_pins: [0, 0, 0, 0, 5, 0, 0, 6]
motor:
  in1_pin: 20
  in2_pin: 21
  reverse: true
defaults:
  debug_level: 2
  mock_gpio: false
`

// minimalYAML is the smallest config Load accepts.
const minimalYAML = `
trigger:
  pin: 23
echo:
  type: "mock"
servo:
  type: "mock"
display:
  type: "mock"
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Echo.Type != EchoCdev || cfg.Echo.Chip != "gpiochip4" || cfg.Echo.Pin != 24 {
		t.Errorf("echo = %+v", cfg.Echo)
	}
	if cfg.Echo.MinWidthTicks != 116 {
		t.Errorf("echo.min_width_ticks = %d, want 116", cfg.Echo.MinWidthTicks)
	}
	if cfg.Servo.Type != ServoRPi || cfg.Servo.Pin != 18 {
		t.Errorf("servo = %+v", cfg.Servo)
	}
	if cfg.Display.Address != 0x3f {
		t.Errorf("display.address = %#x, want 0x3f", cfg.Display.Address)
	}
	if got := cfg.Indicator.LEDPins; len(got) != 8 || got[4] != 5 || got[7] != 6 {
		t.Errorf("indicator.led_pins = %v", got)
	}
	if cfg.TriggerWidth() != 15*time.Microsecond {
		t.Errorf("TriggerWidth = %v, want 15µs", cfg.TriggerWidth())
	}
	if cfg.BeepDuration() != 50*time.Millisecond {
		t.Errorf("BeepDuration = %v, want 50ms", cfg.BeepDuration())
	}
	if cfg.DisplaySettle() != 2*time.Millisecond {
		t.Errorf("DisplaySettle = %v, want 2ms", cfg.DisplaySettle())
	}
	if !cfg.Motor.Reverse {
		t.Error("motor.reverse not loaded")
	}
	if cfg.Defaults.DebugLevel != 2 || cfg.Defaults.MockGPIO {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Trigger.WidthUs != 12 {
		t.Errorf("trigger.width_us default = %d, want 12", cfg.Trigger.WidthUs)
	}
	if cfg.Echo.MinWidthTicks != 1 {
		t.Errorf("echo.min_width_ticks default = %d, want 1", cfg.Echo.MinWidthTicks)
	}
	if cfg.Indicator.BeepMs != 100 {
		t.Errorf("indicator.beep_ms default = %d, want 100", cfg.Indicator.BeepMs)
	}
}

func TestLoad_BackendDefaults(t *testing.T) {
	yaml := `
trigger:
  pin: 23
echo:
  type: "cdev"
  pin: 24
servo:
  type: "pca9685"
display:
  type: "serial"
  port: "/dev/ttyS0"
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Echo.Chip != "gpiochip0" {
		t.Errorf("echo.chip default = %q, want gpiochip0", cfg.Echo.Chip)
	}
	if cfg.Servo.Address != 0x40 {
		t.Errorf("servo.address default = %#x, want 0x40", cfg.Servo.Address)
	}
	if cfg.Display.Baud != 9600 {
		t.Errorf("display.baud default = %d, want 9600", cfg.Display.Baud)
	}
}

func TestLoad_RPiEcho(t *testing.T) {
	yaml := strings.Replace(minimalYAML, `echo:
  type: "mock"`, `echo:
  type: "rpio"
  pin: 24
  poll_us: 20`, 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Echo.Type != EchoRPi || cfg.EchoPoll() != 20*time.Microsecond {
		t.Errorf("echo = %+v, poll %v", cfg.Echo, cfg.EchoPoll())
	}
}

func TestLoad_HD44780DefaultAddress(t *testing.T) {
	yaml := strings.Replace(minimalYAML, `display:
  type: "mock"`, `display:
  type: "hd44780"`, 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Display.Address != 0x27 {
		t.Errorf("display.address default = %#x, want 0x27", cfg.Display.Address)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		old  string
		new  string
	}{
		{"missing_echo_type", `type: "mock"
servo`, `type: ""
servo`},
		{"unknown_echo_type", `echo:
  type: "mock"`, `echo:
  type: "sonar"`},
		{"cdev_without_pin", `echo:
  type: "mock"`, `echo:
  type: "cdev"`},
		{"periph_without_name", `echo:
  type: "mock"`, `echo:
  type: "periph"`},
		{"rpio_without_pin", `echo:
  type: "mock"`, `echo:
  type: "rpio"`},
		{"rpio_negative_poll", `echo:
  type: "mock"`, `echo:
  type: "rpio"
  pin: 24
  poll_us: -5`},
		{"negative_min_width", `echo:
  type: "mock"`, `echo:
  type: "mock"
  min_width_ticks: -1`},
		{"sim_distance_too_far", `echo:
  type: "mock"`, `echo:
  type: "mock"
  sim_distance_cm: 401`},
		{"missing_trigger_pin", `pin: 23`, `pin: 0`},
		{"servo_pin_without_pwm", `servo:
  type: "mock"`, `servo:
  type: "rpio"
  pin: 17`},
		{"pca9685_bad_channel", `servo:
  type: "mock"`, `servo:
  type: "pca9685"
  channel: 16`},
		{"unknown_servo_type", `servo:
  type: "mock"`, `servo:
  type: "stepper"`},
		{"serial_without_port", `display:
  type: "mock"`, `display:
  type: "serial"`},
		{"unknown_display_type", `display:
  type: "mock"`, `display:
  type: "oled"`},
		{"negative_settle", `display:
  type: "mock"`, `display:
  type: "mock"
  settle_ms: -1`},
		{"too_many_leds", `display:
  type: "mock"`, `display:
  type: "mock"
indicator:
  led_pins: [1, 2, 3, 4, 5, 6, 7, 8, 9]`},
		{"motor_same_pins", `display:
  type: "mock"`, `display:
  type: "mock"
motor:
  in1_pin: 20
  in2_pin: 20`},
		{"debug_level_too_high", `display:
  type: "mock"`, `display:
  type: "mock"
defaults:
  debug_level: 5`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yaml := strings.Replace(minimalYAML, tc.old, tc.new, 1)
			if yaml == minimalYAML {
				t.Fatalf("replacement %q did not apply", tc.old)
			}
			if _, err := Load(writeConfig(t, yaml)); err == nil {
				t.Errorf("expected error, got nil")
			}
		})
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "big.yaml")
	data := make([]byte, MaxConfigFileBytes+1)
	for i := range data {
		data[i] = '#'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for empty config (echo.type missing), got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	yaml := minimalYAML + `
unknown_section:
  foo: bar
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "nonexistent.yaml")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

// ---------- Default ----------

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("embedded config: %v", err)
	}
	if !cfg.Defaults.MockGPIO {
		t.Error("embedded config must run without hardware")
	}
	if cfg.Echo.Type != EchoMock || cfg.Servo.Type != ServoMock || cfg.Display.Type != DisplayMock {
		t.Errorf("embedded backends = %s/%s/%s, want mock", cfg.Echo.Type, cfg.Servo.Type, cfg.Display.Type)
	}
}

func TestShippedConfigs(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "configs", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Skip("no configs/ directory next to the module root")
	}
	for _, p := range paths {
		if _, err := Load(p); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}
}
